package cms

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Digest describes a supported message-digest algorithm. The caller-facing
// name is authoritative: the OID is always derived from the configured name,
// never hard-coded.
type Digest struct {
	Name string
	Hash crypto.Hash
	OID  asn1.ObjectIdentifier
}

// DefaultDigest is the deployment default.
const DefaultDigest = "sha256"

var digests = []Digest{
	{"sha256", crypto.SHA256, OIDSHA256},
	{"sha384", crypto.SHA384, OIDSHA384},
	{"sha512", crypto.SHA512, OIDSHA512},
	{"sha3-256", crypto.SHA3_256, OIDSHA3_256},
	{"sha3-384", crypto.SHA3_384, OIDSHA3_384},
	{"sha3-512", crypto.SHA3_512, OIDSHA3_512},
}

// DigestByName resolves a digest algorithm from its configured name.
// Names are case-insensitive; "SHA-256" and "sha256" are equivalent.
func DigestByName(name string) (Digest, error) {
	if name == "" {
		name = DefaultDigest
	}
	normalized := strings.ToLower(name)
	if after, ok := strings.CutPrefix(normalized, "sha-"); ok {
		normalized = "sha" + after
	}
	for _, d := range digests {
		if d.Name == normalized {
			return d, nil
		}
	}
	return Digest{}, fmt.Errorf("%w: digest %q", ErrUnsupportedAlgorithm, name)
}

// DigestByOID resolves a digest algorithm from its OID.
func DigestByOID(oid asn1.ObjectIdentifier) (Digest, error) {
	for _, d := range digests {
		if d.OID.Equal(oid) {
			return d, nil
		}
	}
	return Digest{}, fmt.Errorf("%w: digest OID %v", ErrUnsupportedAlgorithm, oid)
}

// Sum computes the digest over data.
func (d Digest) Sum(data []byte) []byte {
	h := d.newHash()
	h.Write(data)
	return h.Sum(nil)
}

// AlgorithmIdentifier returns the DER algorithm identifier for this digest.
func (d Digest) AlgorithmIdentifier() pkix.AlgorithmIdentifier {
	return pkix.AlgorithmIdentifier{Algorithm: d.OID}
}

func (d Digest) newHash() hash.Hash {
	switch d.Hash {
	case crypto.SHA3_256:
		return sha3.New256()
	case crypto.SHA3_384:
		return sha3.New384()
	case crypto.SHA3_512:
		return sha3.New512()
	default:
		return d.Hash.New()
	}
}

// signatureOIDs maps (key family, digest name) to the signature algorithm OID.
var signatureOIDs = map[string]map[string]asn1.ObjectIdentifier{
	"rsa": {
		"sha256":   OIDSHA256WithRSA,
		"sha384":   OIDSHA384WithRSA,
		"sha512":   OIDSHA512WithRSA,
		"sha3-256": OIDSHA3_256WithRSA,
		"sha3-384": OIDSHA3_384WithRSA,
		"sha3-512": OIDSHA3_512WithRSA,
	},
	"ecdsa": {
		"sha256":   OIDECDSAWithSHA256,
		"sha384":   OIDECDSAWithSHA384,
		"sha512":   OIDECDSAWithSHA512,
		"sha3-256": OIDECDSAWithSHA3_256,
		"sha3-384": OIDECDSAWithSHA3_384,
		"sha3-512": OIDECDSAWithSHA3_512,
	},
}

// SignatureAlgorithmFor returns the signature algorithm identifier for a
// public key and digest pair. Only RSA and ECDSA keys are recognized.
func SignatureAlgorithmFor(pub crypto.PublicKey, d Digest) (pkix.AlgorithmIdentifier, error) {
	var family string
	switch pub.(type) {
	case *rsa.PublicKey:
		family = "rsa"
	case *ecdsa.PublicKey:
		family = "ecdsa"
	default:
		return pkix.AlgorithmIdentifier{}, fmt.Errorf("%w: public key type %T", ErrUnsupportedAlgorithm, pub)
	}

	oid, ok := signatureOIDs[family][d.Name]
	if !ok {
		return pkix.AlgorithmIdentifier{}, fmt.Errorf("%w: %s with %s", ErrUnsupportedAlgorithm, family, d.Name)
	}
	return pkix.AlgorithmIdentifier{Algorithm: oid}, nil
}
