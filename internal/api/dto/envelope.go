package dto

// SignRequest represents an envelope signing request.
type SignRequest struct {
	// Payload is the content to sign.
	Payload BinaryData `json:"payload"`

	// Format selects the wire format: "detached" (default) or "encapsulated".
	Format string `json:"format,omitempty"`

	// Digest names the message-digest algorithm; empty selects the default.
	Digest string `json:"digest,omitempty"`
}

// SignResponse represents the result of envelope signing.
type SignResponse struct {
	// Envelope is the PEM-armored signed envelope.
	Envelope string `json:"envelope"`

	// Format is the wire format that was produced.
	Format string `json:"format"`

	// Digest is the digest algorithm that was applied.
	Digest string `json:"digest"`
}

// VerifyRequest represents an envelope verification request.
type VerifyRequest struct {
	// Envelope is the signed envelope, PEM-armored or raw.
	Envelope BinaryData `json:"envelope"`

	// TrustedCertificate optionally pins the verification certificate.
	TrustedCertificate *BinaryData `json:"trusted_certificate,omitempty"`
}

// VerifyResponse represents the result of envelope verification.
type VerifyResponse struct {
	// Verified is the signature verdict.
	Verified bool `json:"verified"`

	// Format is the wire format that was recognized.
	Format string `json:"format,omitempty"`

	// Payload is the recovered content, base64-encoded. Withheld when the
	// verdict is negative.
	Payload string `json:"payload,omitempty"`

	// Chain lists the recovered certificates, signer first.
	Chain []CertificateItem `json:"chain,omitempty"`
}
