package cms

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
)

// BuildParams describes one SignedData structure to serialize.
type BuildParams struct {
	// Payload is embedded when non-nil; nil produces a detached structure.
	Payload []byte

	// Certificates are embedded in order: signer first, then intermediates,
	// root last if present.
	Certificates [][]byte

	// SignerCert identifies the signer; its issuer and serial number go into
	// the signer-info record.
	SignerCert *x509.Certificate

	// Digest is the message-digest algorithm recorded in the structure.
	Digest Digest

	// SignatureAlgorithm identifies the signature scheme.
	SignatureAlgorithm pkix.AlgorithmIdentifier

	// Signature is the raw signature over the payload digest.
	Signature []byte
}

// Build serializes a SignedData structure with exactly one signer-info.
func Build(p BuildParams) ([]byte, error) {
	if p.SignerCert == nil {
		return nil, &Error{Op: "build", Err: fmt.Errorf("signer certificate is required")}
	}
	if len(p.Signature) == 0 {
		return nil, &Error{Op: "build", Err: fmt.Errorf("signature is required")}
	}

	signerInfo := SignerInfo{
		Version: 1,
		SID: IssuerAndSerialNumber{
			Issuer:       asn1.RawValue{FullBytes: p.SignerCert.RawIssuer},
			SerialNumber: p.SignerCert.SerialNumber,
		},
		DigestAlgorithm:    p.Digest.AlgorithmIdentifier(),
		SignatureAlgorithm: p.SignatureAlgorithm,
		Signature:          p.Signature,
	}

	encap := EncapsulatedContentInfo{EContentType: OIDData}
	if p.Payload != nil {
		// eContent is [0] EXPLICIT OCTET STRING. encoding/asn1 does not apply
		// the explicit wrapper to RawValue fields, so build it by hand.
		octets, err := asn1.Marshal(p.Payload)
		if err != nil {
			return nil, &Error{Op: "build", Err: fmt.Errorf("failed to marshal payload: %w", err)}
		}
		encap.EContent = asn1.RawValue{
			Class:      asn1.ClassContextSpecific,
			Tag:        0,
			IsCompound: true,
			Bytes:      octets,
		}
	}

	signedData := SignedData{
		Version:          1,
		DigestAlgorithms: []pkix.AlgorithmIdentifier{p.Digest.AlgorithmIdentifier()},
		EncapContentInfo: encap,
		SignerInfos:      []SignerInfo{signerInfo},
	}

	if len(p.Certificates) > 0 {
		var concat []byte
		for _, der := range p.Certificates {
			concat = append(concat, der...)
		}
		signedData.Certificates = asn1.RawValue{
			Class:      asn1.ClassContextSpecific,
			Tag:        0,
			IsCompound: true,
			Bytes:      concat,
		}
	}

	signedDataDER, err := asn1.Marshal(signedData)
	if err != nil {
		return nil, &Error{Op: "build", Err: fmt.Errorf("failed to marshal SignedData: %w", err)}
	}

	contentInfo := ContentInfo{
		ContentType: OIDSignedData,
		Content: asn1.RawValue{
			Class:      asn1.ClassContextSpecific,
			Tag:        0,
			IsCompound: true,
			Bytes:      signedDataDER,
		},
	}

	der, err := asn1.Marshal(contentInfo)
	if err != nil {
		return nil, &Error{Op: "build", Err: fmt.Errorf("failed to marshal ContentInfo: %w", err)}
	}
	return der, nil
}
