// Package groupkex implements a Burmester-Desmedt-style cyclic group
// key-agreement protocol from the [paper]:
//
//	Mike Burmester and Yvo Desmedt. "A Secure and Efficient Conference Key
//	Distribution System." In Advances in Cryptology (EUROCRYPT), 1994.
//
// A dynamic set of peer-to-peer participants derives a fresh shared
// symmetric key without any trusted party. Each participant runs an
// identical Engine; engines exchange two broadcast messages per round (a Z
// value, then an X value) and converge on the same key.
//
// The engine tracks one cycle record per in-flight initiator, tolerates
// out-of-order delivery of Z and X messages, and rekeys whenever the
// locally elected initiator starts a new cycle. The low-level
// Diffie-Hellman-style primitives, the transport, and the membership
// service are all injected collaborators; see [KeyAgreement], [Sink], and
// the [Engine.AddMember]/[Engine.DeleteMember]/[Engine.SetMyID] methods.
//
// [paper]: https://doi.org/10.1007/BFb0053443
package groupkex
