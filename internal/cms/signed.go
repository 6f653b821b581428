package cms

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
)

// ContentInfo is the top-level CMS structure (RFC 5652 Section 3).
type ContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,tag:0"`
}

// SignedData is the CMS SignedData structure (RFC 5652 Section 5).
type SignedData struct {
	Version          int
	DigestAlgorithms []pkix.AlgorithmIdentifier `asn1:"set"`
	EncapContentInfo EncapsulatedContentInfo
	Certificates     asn1.RawValue `asn1:"optional,tag:0"`
	CRLs             asn1.RawValue `asn1:"optional,tag:1"`
	SignerInfos      []SignerInfo  `asn1:"set"`
}

// EncapsulatedContentInfo holds the signed content (RFC 5652 Section 5.2).
// EContent is absent for detached signatures.
type EncapsulatedContentInfo struct {
	EContentType asn1.ObjectIdentifier
	EContent     asn1.RawValue `asn1:"optional,explicit,tag:0"`
}

// SignerInfo binds one signature to the certificate that produced it
// (RFC 5652 Section 5.3). The signer is always identified by issuer and
// serial number, never by subject-key-identifier.
type SignerInfo struct {
	Version            int
	SID                IssuerAndSerialNumber
	DigestAlgorithm    pkix.AlgorithmIdentifier
	SignedAttrs        asn1.RawValue `asn1:"optional,tag:0"`
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          []byte
	UnsignedAttrs      asn1.RawValue `asn1:"optional,tag:1"`
}

// IssuerAndSerialNumber identifies a certificate by issuer DN and serial.
type IssuerAndSerialNumber struct {
	Issuer       asn1.RawValue
	SerialNumber *big.Int
}

// SignerInfo returns the single signer-info record.
func (sd *SignedData) SignerInfo() (*SignerInfo, error) {
	if len(sd.SignerInfos) == 0 {
		return nil, ErrNoSigner
	}
	return &sd.SignerInfos[0], nil
}

// CertificateList returns the embedded certificates in embedding order.
func (sd *SignedData) CertificateList() ([]*x509.Certificate, error) {
	raw := sd.Certificates.Bytes
	if len(raw) == 0 {
		return nil, ErrNoCertificate
	}

	var certs []*x509.Certificate
	for len(raw) > 0 {
		var entry asn1.RawValue
		rest, err := asn1.Unmarshal(raw, &entry)
		if err != nil {
			return nil, fmt.Errorf("malformed certificate entry: %w", err)
		}
		cert, err := x509.ParseCertificate(entry.FullBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded certificate: %w", err)
		}
		certs = append(certs, cert)
		raw = rest
	}
	if len(certs) == 0 {
		return nil, ErrNoCertificate
	}
	return certs, nil
}

// Payload returns the embedded content, or nil for a detached structure.
func (sd *SignedData) Payload() []byte {
	econtent := sd.EncapContentInfo.EContent
	if len(econtent.Bytes) == 0 && len(econtent.FullBytes) == 0 {
		return nil
	}
	if econtent.Tag == asn1.TagOctetString && econtent.Class == asn1.ClassUniversal {
		return econtent.Bytes
	}
	// Some encoders nest the OCTET STRING one level deeper.
	var inner []byte
	if _, err := asn1.Unmarshal(econtent.Bytes, &inner); err == nil {
		return inner
	}
	return econtent.Bytes
}
