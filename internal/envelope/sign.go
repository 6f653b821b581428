// Package envelope produces and verifies signed envelopes in two wire
// formats: encapsulated SignedData, and a detached-combined container that
// length-prefixes a detached SignedData structure and appends the raw
// payload. Both formats are armored as PEM for transport.
package envelope

import (
	"context"
	"crypto"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/signbridge/signbridge/internal/certchain"
	"github.com/signbridge/signbridge/internal/cms"
	sbcrypto "github.com/signbridge/signbridge/internal/crypto"
	"github.com/signbridge/signbridge/internal/pemutil"
)

// RemoteSigner signs a precomputed digest on a remote device.
// *remote.Client satisfies it.
type RemoteSigner interface {
	SignHash(ctx context.Context, keyID string, digest []byte, algorithm string) ([]byte, error)
}

// SignRequest describes one signing operation. The private-key operation
// runs locally when Key is set, or on a remote device when Remote is set;
// exactly one of the two must be provided. The produced envelope is
// identical either way.
type SignRequest struct {
	// Payload is the content to sign.
	Payload []byte

	// Certificate is the signer's end-entity certificate.
	Certificate *certchain.Certificate

	// Chain holds additional certificates to embed after the signer,
	// in order: intermediates first, root last.
	Chain certchain.Chain

	// Key is the local signing key.
	Key crypto.Signer

	// Remote delegates the digest signing to a remote device; RemoteKeyID
	// identifies the key on that device.
	Remote      RemoteSigner
	RemoteKeyID string

	// Digest names the message-digest algorithm. Empty selects the
	// deployment default.
	Digest string
}

// SignDetached signs the payload and emits the detached-combined format:
// a 4-byte big-endian length of the detached signature structure, the
// structure itself, then the raw payload, all PEM-armored.
//
// The payload trails the signature so verification can split the envelope
// on the prefix alone, without parsing past the payload.
func SignDetached(ctx context.Context, req SignRequest) ([]byte, error) {
	sigStruct, payload, err := sign(ctx, req, true)
	if err != nil {
		return nil, err
	}

	if len(sigStruct) > int(^uint32(0))-4 {
		return nil, &Error{Op: "sign-detached", Err: fmt.Errorf("%w: signature structure too large", ErrEncoding)}
	}
	framed := make([]byte, 4, 4+len(sigStruct)+len(payload))
	binary.BigEndian.PutUint32(framed, uint32(len(sigStruct)))
	framed = append(framed, sigStruct...)
	framed = append(framed, payload...)

	return pemutil.Encode(pemutil.EnvelopeLabel, framed), nil
}

// SignEncapsulated signs the payload and emits an encapsulated SignedData
// structure with the payload embedded, PEM-armored. The payload is held in
// memory twice during construction; use the detached format for large
// content.
func SignEncapsulated(ctx context.Context, req SignRequest) ([]byte, error) {
	der, _, err := sign(ctx, req, false)
	if err != nil {
		return nil, err
	}
	return pemutil.Encode(pemutil.EnvelopeLabel, der), nil
}

// sign runs the shared signing path and returns the serialized SignedData
// and the payload bytes.
func sign(ctx context.Context, req SignRequest, detached bool) ([]byte, []byte, error) {
	op := "sign-encapsulated"
	if detached {
		op = "sign-detached"
	}

	if req.Certificate == nil {
		return nil, nil, &Error{Op: op, Err: fmt.Errorf("signer certificate is required")}
	}
	if (req.Key == nil) == (req.Remote == nil) {
		return nil, nil, &Error{Op: op, Err: fmt.Errorf("exactly one of a local key or a remote signer is required")}
	}

	digestName := req.Digest
	if digestName == "" {
		digestName = cms.DefaultDigest
	}
	digest, err := cms.DigestByName(digestName)
	if err != nil {
		return nil, nil, &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrSigningKey, err)}
	}

	certPub, err := req.Certificate.PublicKey()
	if err != nil {
		return nil, nil, &Error{Op: op, Err: err}
	}
	sigAlg, err := cms.SignatureAlgorithmFor(certPub, digest)
	if err != nil {
		return nil, nil, &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrSigningKey, err)}
	}
	if req.Key != nil && !sbcrypto.PublicKeysMatch(certPub, req.Key.Public()) {
		return nil, nil, &Error{Op: op, Err: ErrCertificateMismatch}
	}

	signature, err := computeSignature(ctx, req, digest)
	if err != nil {
		return nil, nil, &Error{Op: op, Err: err}
	}

	certs := [][]byte{req.Certificate.Raw()}
	for _, c := range req.Chain {
		if c.Equal(req.Certificate) {
			continue
		}
		certs = append(certs, c.Raw())
	}

	params := cms.BuildParams{
		Certificates:       certs,
		SignerCert:         req.Certificate.X509(),
		Digest:             digest,
		SignatureAlgorithm: sigAlg,
		Signature:          signature,
	}
	if !detached {
		params.Payload = req.Payload
	}

	der, err := cms.Build(params)
	if err != nil {
		return nil, nil, &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrEncoding, err)}
	}
	return der, req.Payload, nil
}

func computeSignature(ctx context.Context, req SignRequest, digest cms.Digest) ([]byte, error) {
	sum := digest.Sum(req.Payload)

	if req.Remote != nil {
		sig, err := req.Remote.SignHash(ctx, req.RemoteKeyID, sum, digest.Name)
		if err != nil {
			return nil, fmt.Errorf("remote signing failed: %w", err)
		}
		return sig, nil
	}

	sig, err := req.Key.Sign(rand.Reader, sum, digest.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningKey, err)
	}
	return sig, nil
}
