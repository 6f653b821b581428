package dto

// CertificateItem describes one certificate in a chain.
type CertificateItem struct {
	// Subject is the certificate subject DN.
	Subject string `json:"subject"`

	// Issuer is the certificate issuer DN.
	Issuer string `json:"issuer"`

	// Serial is the certificate serial number, decimal.
	Serial string `json:"serial"`

	// Validity is the certificate validity period.
	Validity ValidityInfo `json:"validity"`

	// SelfSigned reports whether subject and issuer are the same entity.
	SelfSigned bool `json:"self_signed,omitempty"`

	// PEM is the certificate in PEM encoding.
	PEM string `json:"pem,omitempty"`
}

// InspectRequest represents a certificate inspection request.
type InspectRequest struct {
	// Certificates holds one or more PEM certificate blocks.
	Certificates BinaryData `json:"certificates"`
}

// InspectResponse represents the result of certificate inspection.
type InspectResponse struct {
	// Chain lists the parsed certificates in input order.
	Chain []CertificateItem `json:"chain"`
}
