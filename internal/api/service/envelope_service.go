// Package service implements the operations behind the REST API handlers.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/signbridge/signbridge/internal/api/dto"
	"github.com/signbridge/signbridge/internal/audit"
	"github.com/signbridge/signbridge/internal/certchain"
	"github.com/signbridge/signbridge/internal/cms"
	sbcrypto "github.com/signbridge/signbridge/internal/crypto"
	"github.com/signbridge/signbridge/internal/envelope"
)

// Service-level sentinel errors, mapped to HTTP status codes by handlers.
var (
	// ErrInvalidRequest indicates a malformed or incomplete request body.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoSigner indicates the server was started without signing material.
	ErrNoSigner = errors.New("no signing identity configured")
)

// SignerIdentity bundles the signing material the server was started with.
type SignerIdentity struct {
	Certificate *certchain.Certificate
	Chain       certchain.Chain
	Key         sbcrypto.Signer

	// Remote delegates private-key operations to a remote device.
	Remote      envelope.RemoteSigner
	RemoteKeyID string
}

// EnvelopeService signs and verifies envelopes.
type EnvelopeService struct {
	identity *SignerIdentity
	auditLog audit.Writer
}

// NewEnvelopeService creates an EnvelopeService. identity may be nil for a
// verify-only server. auditLog may be nil to disable audit logging.
func NewEnvelopeService(identity *SignerIdentity, auditLog audit.Writer) *EnvelopeService {
	if auditLog == nil {
		auditLog = audit.NopWriter{}
	}
	return &EnvelopeService{identity: identity, auditLog: auditLog}
}

// Sign produces a signed envelope from the request payload.
func (s *EnvelopeService) Sign(ctx context.Context, req *dto.SignRequest) (*dto.SignResponse, error) {
	if s.identity == nil {
		return nil, ErrNoSigner
	}

	payload, err := req.Payload.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalidRequest, err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: payload is empty", ErrInvalidRequest)
	}

	format := req.Format
	if format == "" {
		format = string(envelope.FormatDetached)
	}
	digest := req.Digest
	if digest == "" {
		digest = cms.DefaultDigest
	}

	signReq := envelope.SignRequest{
		Payload:     payload,
		Certificate: s.identity.Certificate,
		Chain:       s.identity.Chain,
		Key:         s.identity.Key,
		Remote:      s.identity.Remote,
		RemoteKeyID: s.identity.RemoteKeyID,
		Digest:      digest,
	}

	var armored []byte
	switch envelope.Format(format) {
	case envelope.FormatDetached:
		armored, err = envelope.SignDetached(ctx, signReq)
	case envelope.FormatEncapsulated:
		armored, err = envelope.SignEncapsulated(ctx, signReq)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidRequest, format)
	}

	if auditErr := s.auditSign(format, digest, err); auditErr != nil {
		return nil, fmt.Errorf("audit write failed: %w", auditErr)
	}
	if err != nil {
		return nil, err
	}

	return &dto.SignResponse{
		Envelope: string(armored),
		Format:   format,
		Digest:   digest,
	}, nil
}

// Verify checks a signed envelope.
func (s *EnvelopeService) Verify(ctx context.Context, req *dto.VerifyRequest) (*dto.VerifyResponse, error) {
	data, err := req.Envelope.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrInvalidRequest, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: envelope is empty", ErrInvalidRequest)
	}

	var trusted *certchain.Certificate
	if req.TrustedCertificate != nil {
		pemText, err := req.TrustedCertificate.Decode()
		if err != nil {
			return nil, fmt.Errorf("%w: trusted certificate: %v", ErrInvalidRequest, err)
		}
		chain, err := certchain.ParseChain(pemText)
		if err != nil {
			return nil, fmt.Errorf("%w: trusted certificate: %v", ErrInvalidRequest, err)
		}
		trusted = chain.Signer()
	}

	result, err := envelope.Verify(data, trusted)
	if auditErr := s.auditVerify(result, err); auditErr != nil {
		return nil, fmt.Errorf("audit write failed: %w", auditErr)
	}
	if err != nil {
		return nil, err
	}

	resp := &dto.VerifyResponse{
		Verified: result.Verified,
		Format:   string(result.Format),
	}
	if result.Verified {
		resp.Payload = base64.StdEncoding.EncodeToString(result.Payload)
		resp.Chain = CertificateItems(result.Chain)
	}
	return resp, nil
}

// auditSign records the sign attempt. Audit failure fails the operation.
func (s *EnvelopeService) auditSign(format, digest string, opErr error) error {
	result := audit.ResultSuccess
	reason := ""
	if opErr != nil {
		result = audit.ResultFailure
		reason = opErr.Error()
	}

	keySource := "local"
	if s.identity != nil && s.identity.Remote != nil {
		keySource = "remote"
	}

	event := audit.NewEvent(audit.EventEnvelopeSign, result).
		WithObject(audit.Object{Type: "envelope"}).
		WithContext(audit.Context{
			Format:    format,
			Algorithm: digest,
			KeySource: keySource,
			Reason:    reason,
		})
	return s.auditLog.Write(event)
}

// auditVerify records the verification attempt.
func (s *EnvelopeService) auditVerify(result *envelope.Result, opErr error) error {
	auditResult := audit.ResultSuccess
	ctx := audit.Context{}
	if opErr != nil {
		auditResult = audit.ResultFailure
		ctx.Reason = opErr.Error()
	} else {
		ctx.Verified = result.Verified
		ctx.Format = string(result.Format)
	}

	event := audit.NewEvent(audit.EventEnvelopeVerify, auditResult).
		WithObject(audit.Object{Type: "envelope"}).
		WithContext(ctx)
	return s.auditLog.Write(event)
}
