// Package certchain provides a typed, ordered representation of X.509
// certificates and certificate chains as used by the signing and
// verification engines.
package certchain

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/signbridge/signbridge/internal/pemutil"
)

var (
	// ErrMalformedInput indicates no certificate blocks were found in the input.
	ErrMalformedInput = errors.New("no certificate blocks found")

	// ErrAsnDecode indicates a certificate's DER encoding is structurally invalid.
	ErrAsnDecode = errors.New("invalid certificate DER")

	// ErrMissingPublicKey indicates the public key could not be extracted.
	ErrMissingPublicKey = errors.New("certificate has no usable public key")
)

// AttributeTypeValue is one attribute of a distinguished name, in the order
// it appears in the encoded name.
type AttributeTypeValue struct {
	Type  string
	Value string
}

// Certificate is a parsed X.509 certificate. It is immutable once parsed and
// safe to share across concurrent signing and verification calls.
type Certificate struct {
	raw  []byte
	cert *x509.Certificate
}

// Chain is an ordered certificate chain. Index 0 is the signer's end-entity
// certificate, followed by intermediates in signing order; the final entry,
// if present, is the root.
type Chain []*Certificate

// ParseSingle parses one DER-encoded certificate.
func ParseSingle(der []byte) (*Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAsnDecode, err)
	}
	if cert.PublicKey == nil {
		return nil, ErrMissingPublicKey
	}
	raw := make([]byte, len(der))
	copy(raw, der)
	return &Certificate{raw: raw, cert: cert}, nil
}

// ParseChain parses every CERTIFICATE block in a PEM text blob.
// The output order matches the order of appearance in the input.
func ParseChain(pemText []byte) (Chain, error) {
	blocks, err := pemutil.DecodeAll(pemText)
	if errors.Is(err, pemutil.ErrNoPEMBlock) {
		return nil, ErrMalformedInput
	}
	if err != nil {
		return nil, err
	}

	var chain Chain
	for _, block := range blocks {
		if block.Label != pemutil.CertificateLabel {
			continue
		}
		cert, err := ParseSingle(block.Bytes)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		return nil, ErrMalformedInput
	}
	return chain, nil
}

// FromX509 wraps an already-parsed x509 certificate.
func FromX509(cert *x509.Certificate) *Certificate {
	return &Certificate{raw: cert.Raw, cert: cert}
}

// Raw returns the DER encoding of the certificate.
func (c *Certificate) Raw() []byte { return c.raw }

// X509 returns the underlying parsed certificate.
func (c *Certificate) X509() *x509.Certificate { return c.cert }

// Subject returns the subject distinguished name attributes in encoding order.
func (c *Certificate) Subject() []AttributeTypeValue {
	return nameAttributes(c.cert.Subject)
}

// Issuer returns the issuer distinguished name attributes in encoding order.
func (c *Certificate) Issuer() []AttributeTypeValue {
	return nameAttributes(c.cert.Issuer)
}

// SerialNumber returns the certificate serial number. Serial numbers are
// compared by value, never by encoding.
func (c *Certificate) SerialNumber() *big.Int { return c.cert.SerialNumber }

// NotBefore returns the start of the validity period.
func (c *Certificate) NotBefore() time.Time { return c.cert.NotBefore }

// NotAfter returns the end of the validity period.
func (c *Certificate) NotAfter() time.Time { return c.cert.NotAfter }

// PublicKey returns the certificate's public key.
func (c *Certificate) PublicKey() (crypto.PublicKey, error) {
	if c.cert.PublicKey == nil {
		return nil, ErrMissingPublicKey
	}
	return c.cert.PublicKey, nil
}

// Equal reports whether two certificates have the same DER encoding.
// Certificates carry no identity beyond their encoding.
func (c *Certificate) Equal(other *Certificate) bool {
	if c == nil || other == nil {
		return c == other
	}
	return bytes.Equal(c.raw, other.raw)
}

// IsSelfSigned reports whether subject and issuer are the same encoded name.
func (c *Certificate) IsSelfSigned() bool {
	return bytes.Equal(c.cert.RawSubject, c.cert.RawIssuer)
}

// Signer returns the end-entity certificate, or nil for an empty chain.
func (ch Chain) Signer() *Certificate {
	if len(ch) == 0 {
		return nil
	}
	return ch[0]
}

// EncodePEM encodes the chain as consecutive CERTIFICATE blocks.
func (ch Chain) EncodePEM() []byte {
	var out []byte
	for _, cert := range ch {
		out = append(out, pemutil.Encode(pemutil.CertificateLabel, cert.Raw())...)
	}
	return out
}

// oidNames maps DN attribute OIDs to their conventional short names.
var oidNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.5":                    "SERIALNUMBER",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"1.2.840.113549.1.9.1":       "E",
	"0.9.2342.19200300.100.1.25": "DC",
}

func nameAttributes(name pkix.Name) []AttributeTypeValue {
	attrs := make([]AttributeTypeValue, 0, len(name.Names))
	for _, atv := range name.Names {
		typ := atv.Type.String()
		if short, ok := oidNames[typ]; ok {
			typ = short
		}
		attrs = append(attrs, AttributeTypeValue{
			Type:  typ,
			Value: fmt.Sprint(atv.Value),
		})
	}
	return attrs
}
