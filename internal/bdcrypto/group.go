// Package bdcrypto is the default groupkex.KeyAgreement implementation: the
// textbook Burmester-Desmedt construction over a safe-prime multiplicative
// group, with HKDF-SHA256 as the key derivation function.
package bdcrypto

import "math/big"

// The 2048-bit MODP group from RFC 3526 §3, generator 2. Burmester-Desmedt
// needs a group with known prime order to divide by zArray values (ComputeX
// below), which rules out the X25519 curve the teacher's art.go uses for its
// Diffie-Hellman steps; a safe-prime group is the standard substitute.
var (
	groupP = mustParseHex(rfc3526Group14Hex)
	groupG = big.NewInt(2)

	// groupQ is (p-1)/2, the order of the subgroup generated by g=2 in a
	// safe-prime group.
	groupQ = new(big.Int).Rsh(new(big.Int).Sub(groupP, big.NewInt(1)), 1)
)

const rfc3526Group14Hex = "" +
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

func mustParseHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("bdcrypto: malformed group modulus constant")
	}
	return n
}
