package bdcrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"github.com/gammazero/workerpool"
	"golang.org/x/crypto/hkdf"

	groupkex "github.com/openpaas-ng/mute-crypto"
)

// KeySize is the length, in bytes, of a derived session key.
const KeySize = 32

// KeyAgreement is the default groupkex.KeyAgreement implementation. The
// zero value is not usable; construct one with New.
type KeyAgreement struct {
	pool *workerpool.WorkerPool
}

var _ groupkex.KeyAgreement = (*KeyAgreement)(nil)

// New returns a KeyAgreement that dispatches key derivation onto a worker
// pool of the given size. A size of zero uses a single background worker.
func New(poolSize int) *KeyAgreement {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &KeyAgreement{pool: workerpool.New(poolSize)}
}

// Close stops accepting new derivation work and waits for in-flight
// derivations to finish.
func (k *KeyAgreement) Close() {
	k.pool.StopWait()
}

// GenerateR returns a fresh private scalar, uniform on [1, q-1] for the
// group's subgroup order q.
func (k *KeyAgreement) GenerateR() (*big.Int, error) {
	qMinus1 := new(big.Int).Sub(groupQ, big.NewInt(1))
	r, err := rand.Int(rand.Reader, qMinus1)
	if err != nil {
		return nil, fmt.Errorf("bdcrypto: GenerateR: %w", err)
	}
	return r.Add(r, big.NewInt(1)), nil
}

// ComputeZ computes g^r mod p.
func (k *KeyAgreement) ComputeZ(r *big.Int) ([]byte, error) {
	z := new(big.Int).Exp(groupG, r, groupP)
	return z.Bytes(), nil
}

// ComputeX computes (zRight * zLeft^-1)^r mod p, the Burmester-Desmedt
// "ratio" value each participant broadcasts in round two.
func (k *KeyAgreement) ComputeX(r *big.Int, zRight, zLeft []byte) ([]byte, error) {
	zr := new(big.Int).SetBytes(zRight)
	zl := new(big.Int).SetBytes(zLeft)

	zlInv := new(big.Int).ModInverse(zl, groupP)
	if zlInv == nil {
		return nil, fmt.Errorf("bdcrypto: ComputeX: left neighbor's Z has no inverse mod p")
	}

	ratio := new(big.Int).Mul(zr, zlInv)
	ratio.Mod(ratio, groupP)

	x := new(big.Int).Exp(ratio, r, groupP)
	return x.Bytes(), nil
}

// ComputeSharedSecret computes the group element every participant
// converges on:
//
//	K = zLeft^(n*r) * X_i^(n-1) * X_(i+1)^(n-2) * ... * X_(i+n-2)^1  (mod p)
//
// where index is this participant's position in the declared member
// ordering that xArray is indexed by.
func (k *KeyAgreement) ComputeSharedSecret(r *big.Int, index int, zLeft []byte, xArray [][]byte) ([]byte, error) {
	n := len(xArray)
	if n == 0 {
		return nil, fmt.Errorf("bdcrypto: ComputeSharedSecret: empty member set")
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("bdcrypto: ComputeSharedSecret: index %d out of range for %d members", index, n)
	}

	zl := new(big.Int).SetBytes(zLeft)
	nr := new(big.Int).Mul(big.NewInt(int64(n)), r)
	k0 := new(big.Int).Exp(zl, nr, groupP)

	acc := k0
	for j := 0; j < n-1; j++ {
		xj := new(big.Int).SetBytes(xArray[(index+j)%n])
		exp := big.NewInt(int64(n - 1 - j))
		term := new(big.Int).Exp(xj, exp, groupP)
		acc.Mul(acc, term)
		acc.Mod(acc, groupP)
	}

	return acc.Bytes(), nil
}

// stageKeyInfo mirrors the teacher's StageKeyInfo: it packages the inputs
// to HKDF into IKM and domain-separation info, the way the teacher's
// tree.go derives each ART stage key from the previous stage key, the tree
// secret, and the tree's public keys.
type stageKeyInfo struct {
	secret  []byte
	members []groupkex.ParticipantID
}

func (s *stageKeyInfo) ikm() []byte {
	return s.secret
}

func (s *stageKeyInfo) info() []byte {
	info := make([]byte, 0, 8*len(s.members))
	for _, id := range s.members {
		info = append(info, byte(id>>56), byte(id>>48), byte(id>>40), byte(id>>32),
			byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
	}
	return info
}

// DeriveKey derives the session key with HKDF-SHA256, info-bound to the
// cycle's member set so keys from different cycles never collide even if
// their raw secrets somehow did. Derivation runs on the worker pool so
// Engine never blocks its caller on it.
func (k *KeyAgreement) DeriveKey(secret []byte, members []groupkex.ParticipantID) <-chan groupkex.KeyResult {
	out := make(chan groupkex.KeyResult, 1)
	info := &stageKeyInfo{secret: secret, members: members}

	k.pool.Submit(func() {
		key := make([]byte, KeySize)
		kdf := hkdf.New(sha256.New, info.ikm(), nil, info.info())
		if _, err := io.ReadFull(kdf, key); err != nil {
			out <- groupkex.KeyResult{Err: fmt.Errorf("bdcrypto: DeriveKey: %w", err)}
			return
		}
		out <- groupkex.KeyResult{Key: key}
	})

	return out
}
