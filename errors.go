package groupkex

import (
	"errors"
	"fmt"
)

// ErrNoPayload is returned by Deliver when a message carries neither a Z
// nor an X value.
var ErrNoPayload = errors.New("groupkex: message carries neither a Z nor an X payload")

// cryptoError wraps a failure from the injected KeyAgreement collaborator.
// Per spec.md §7 these are fatal to the in-flight cycle; they are never
// swallowed.
func cryptoError(op string, err error) error {
	return fmt.Errorf("groupkex: %s: %w", op, err)
}
