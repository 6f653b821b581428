package cms

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
)

// VerifyDigestSignature checks a signature over the digest of content.
// The signature covers the message digest directly; there are no signed
// attributes in this profile. A failed cryptographic check is reported as
// ErrInvalidSignature; anything else is a setup error.
func VerifyDigestSignature(pub crypto.PublicKey, d Digest, content, signature []byte) error {
	digest := d.Sum(content)

	switch key := pub.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(key, d.Hash, digest, signature); err != nil {
			return fmt.Errorf("%w: RSA: %v", ErrInvalidSignature, err)
		}
		return nil

	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(key, digest, signature) {
			return fmt.Errorf("%w: ECDSA", ErrInvalidSignature)
		}
		return nil

	default:
		return fmt.Errorf("%w: public key type %T", ErrUnsupportedAlgorithm, pub)
	}
}

// SignerDigest resolves the digest algorithm recorded in a signer-info.
func (si *SignerInfo) SignerDigest() (Digest, error) {
	return DigestByOID(si.DigestAlgorithm.Algorithm)
}
