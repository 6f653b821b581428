// This file implements the software key backend. Keys are PEM files on disk.
package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
)

// SoftwareSigner wraps a parsed private key.
type SoftwareSigner struct {
	key crypto.Signer
	alg AlgorithmID
}

var _ Signer = (*SoftwareSigner)(nil)

// NewSoftwareSigner wraps an in-memory private key.
func NewSoftwareSigner(key crypto.Signer) (*SoftwareSigner, error) {
	alg, err := AlgorithmForPublicKey(key.Public())
	if err != nil {
		return nil, err
	}
	return &SoftwareSigner{key: key, alg: alg}, nil
}

// LoadSoftwareSigner reads a PEM private key from disk.
// PKCS#8, PKCS#1 (RSA) and SEC1 (EC) encodings are accepted.
func LoadSoftwareSigner(path string) (*SoftwareSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return ParseSoftwareSigner(data)
}

// ParseSoftwareSigner parses a PEM private key.
func ParseSoftwareSigner(pemData []byte) (*SoftwareSigner, error) {
	for rest := pemData; ; {
		block, remaining := pem.Decode(rest)
		if block == nil {
			break
		}
		rest = remaining

		var key any
		var err error
		switch block.Type {
		case "PRIVATE KEY":
			key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		case "RSA PRIVATE KEY":
			key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		case "EC PRIVATE KEY":
			key, err = x509.ParseECPrivateKey(block.Bytes)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}

		switch k := key.(type) {
		case *rsa.PrivateKey:
			return NewSoftwareSigner(k)
		case *ecdsa.PrivateKey:
			return NewSoftwareSigner(k)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
		}
	}
	return nil, fmt.Errorf("no private key block found in PEM input")
}

// Algorithm returns the algorithm identifier.
func (s *SoftwareSigner) Algorithm() AlgorithmID { return s.alg }

// Public returns the public key.
func (s *SoftwareSigner) Public() crypto.PublicKey { return s.key.Public() }

// Sign signs the digest with the wrapped key.
func (s *SoftwareSigner) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return s.key.Sign(rand, digest, opts)
}

// PrivateKey exposes the wrapped key for serialization.
func (s *SoftwareSigner) PrivateKey() crypto.Signer { return s.key }
