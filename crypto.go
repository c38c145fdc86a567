package groupkex

import "math/big"

// KeyResult is delivered on the channel returned by
// [KeyAgreement.DeriveKey]. Exactly one of Key or Err is set.
type KeyResult struct {
	Key []byte
	Err error
}

// KeyAgreement is the crypto collaborator the engine consumes. Its five
// operations are the low-level Burmester-Desmedt primitives; spec.md
// treats them as entirely out of scope for the engine itself. A reference
// implementation lives in internal/bdcrypto.
type KeyAgreement interface {
	// GenerateR returns a fresh private scalar for one cycle.
	GenerateR() (*big.Int, error)

	// ComputeZ computes this participant's public Z value for r.
	ComputeZ(r *big.Int) ([]byte, error)

	// ComputeX computes this participant's public X value from r and the
	// Z values of its right and left neighbors in the declared member
	// ordering.
	ComputeX(r *big.Int, zRight, zLeft []byte) ([]byte, error)

	// ComputeSharedSecret computes the raw group element all participants
	// converge on, given this participant's r, its index within the
	// declared member ordering, its left neighbor's Z, and the full X
	// array (indexed like Members).
	ComputeSharedSecret(r *big.Int, index int, zLeft []byte, xArray [][]byte) ([]byte, error)

	// DeriveKey derives the symmetric session key from the shared secret.
	// This is the sole asynchronous suspension point in the engine: the
	// result is delivered on the returned channel, which is sent to
	// exactly once and never closed without a send.
	DeriveKey(secret []byte, members []ParticipantID) <-chan KeyResult
}

// Sink is the injected broadcast collaborator. Send is expected to hand
// the message to the transport and return promptly; retries and framing
// are the transport's concern.
type Sink interface {
	Send(OutboundMessage) error
}
