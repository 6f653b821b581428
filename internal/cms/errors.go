package cms

import (
	"errors"
	"fmt"
)

// Error wraps a CMS operation failure with the operation name.
// It supports errors.Is() and errors.As() through the error chain.
type Error struct {
	Op  string // "build", "parse", "verify"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cms %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinel errors for CMS operations.
var (
	// ErrNotSignedData indicates the outer content type is not signed-data.
	ErrNotSignedData = errors.New("not a SignedData structure")

	// ErrNoSigner indicates the structure carries no signer-info record.
	ErrNoSigner = errors.New("no signer information")

	// ErrNoCertificate indicates no certificate was found in the structure.
	ErrNoCertificate = errors.New("no certificate found")

	// ErrInvalidSignature indicates the cryptographic check failed.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnsupportedAlgorithm indicates an algorithm outside the RSA/ECDSA
	// families, or an unknown digest.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
)
