//go:build !cgo

// This file provides stub implementations when CGO is not available.
// PKCS#11 token keys require CGO.
package crypto

import (
	"crypto"
	"fmt"
	"io"
)

// PKCS11Config holds PKCS#11 configuration.
type PKCS11Config struct {
	ModulePath string
	TokenLabel string
	PIN        string
	KeyLabel   string
	KeyID      string
	SlotID     *uint
}

// PKCS11Signer is the stub used when CGO is not available.
type PKCS11Signer struct{}

var _ Signer = (*PKCS11Signer)(nil)

// errNoCGO is returned when PKCS#11 operations are attempted without CGO.
var errNoCGO = fmt.Errorf("PKCS#11 support requires CGO (build with CGO_ENABLED=1)")

// NewPKCS11Signer always fails without CGO.
func NewPKCS11Signer(cfg PKCS11Config) (*PKCS11Signer, error) {
	return nil, errNoCGO
}

// Algorithm returns an empty identifier.
func (s *PKCS11Signer) Algorithm() AlgorithmID { return "" }

// Public returns nil.
func (s *PKCS11Signer) Public() crypto.PublicKey { return nil }

// Sign always fails without CGO.
func (s *PKCS11Signer) Sign(io.Reader, []byte, crypto.SignerOpts) ([]byte, error) {
	return nil, errNoCGO
}

// Close is a no-op.
func (s *PKCS11Signer) Close() error { return nil }

// CloseAllSigners is a no-op without CGO.
func CloseAllSigners() {}
