// Package crypto provides the local private-key backends for the signing
// engine: software keys on disk and PKCS#11 token keys.
package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
)

// Signer extends crypto.Signer with algorithm metadata.
type Signer interface {
	crypto.Signer

	// Algorithm returns the algorithm identifier for this signer.
	Algorithm() AlgorithmID
}

// ErrUnsupportedKey indicates a key outside the RSA/ECDSA families.
var ErrUnsupportedKey = errors.New("unsupported key algorithm")

// AlgorithmID identifies a signing key algorithm.
type AlgorithmID string

const (
	AlgRSA       AlgorithmID = "rsa"
	AlgECDSAP256 AlgorithmID = "ecdsa-p256"
	AlgECDSAP384 AlgorithmID = "ecdsa-p384"
	AlgECDSAP521 AlgorithmID = "ecdsa-p521"
)

// AlgorithmForPublicKey returns the algorithm identifier for a public key.
// Only RSA and ECDSA keys are recognized.
func AlgorithmForPublicKey(pub crypto.PublicKey) (AlgorithmID, error) {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		return AlgRSA, nil
	case *ecdsa.PublicKey:
		switch key.Curve.Params().Name {
		case "P-256":
			return AlgECDSAP256, nil
		case "P-384":
			return AlgECDSAP384, nil
		case "P-521":
			return AlgECDSAP521, nil
		default:
			return "", fmt.Errorf("%w: ECDSA curve %s", ErrUnsupportedKey, key.Curve.Params().Name)
		}
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedKey, pub)
	}
}

// PublicKeysMatch reports whether two public keys are the same key.
// Returns false for key types without an Equal method.
func PublicKeysMatch(a, b crypto.PublicKey) bool {
	type equaler interface {
		Equal(x crypto.PublicKey) bool
	}
	if ak, ok := a.(equaler); ok {
		return ak.Equal(b)
	}
	return false
}
