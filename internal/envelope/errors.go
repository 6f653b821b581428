package envelope

import (
	"errors"
	"fmt"
)

// Error wraps an envelope failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("envelope %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinel errors for signing and verification.
// Use errors.Is() to check for these through the error chain.
var (
	// ErrFraming indicates a bad length prefix in the detached-combined
	// format. The prefix must satisfy 4 < L <= len(envelope) - 4.
	ErrFraming = errors.New("invalid length prefix")

	// ErrSigningKey indicates the signing key algorithm is not supported.
	ErrSigningKey = errors.New("unsupported signing key")

	// ErrCertificateMismatch indicates the signing key does not belong to
	// the signer certificate.
	ErrCertificateMismatch = errors.New("key does not match certificate")

	// ErrEncoding indicates envelope serialization failed.
	ErrEncoding = errors.New("envelope encoding failed")

	// ErrVerificationSetup indicates neither envelope format could be
	// parsed. It is never used for a signature that merely fails to verify.
	ErrVerificationSetup = errors.New("envelope is not verifiable")
)
