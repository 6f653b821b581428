package envelope

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/signbridge/signbridge/internal/certchain"
	"github.com/signbridge/signbridge/internal/cms"
	"github.com/signbridge/signbridge/internal/pemutil"
)

// Format identifies the wire format a verified envelope used.
type Format string

const (
	FormatDetached     Format = "detached"
	FormatEncapsulated Format = "encapsulated"
)

// Result is the outcome of a verification call. When Verified is false the
// payload and chain are withheld.
type Result struct {
	Verified bool
	Payload  []byte
	Chain    certchain.Chain
	Format   Format
}

// Verify checks a signed envelope and recovers its payload and certificate
// chain. Input may be PEM-armored or raw bytes.
//
// The detached-combined format is attempted first. The encapsulated format
// is tried only when the detached attempt fails to parse; a structurally
// valid detached envelope whose signature does not match is reported as
// Verified=false and never re-tried. When neither format parses, the call
// fails with ErrVerificationSetup carrying both causes.
//
// When trusted is non-nil its public key is used for the signature check;
// otherwise the certificate embedded by the signer is used. The returned
// chain always reflects embedding order: signer first, root last.
func Verify(input []byte, trusted *certchain.Certificate) (*Result, error) {
	data, err := decodeArmor(input)
	if err != nil {
		return nil, &Error{Op: "verify", Err: err}
	}

	result, detachedErr := verifyDetached(data, trusted)
	if detachedErr == nil {
		result.Format = FormatDetached
		return result, nil
	}

	result, encapErr := verifyEncapsulated(data, trusted)
	if encapErr == nil {
		result.Format = FormatEncapsulated
		return result, nil
	}

	return nil, &Error{
		Op:  "verify",
		Err: fmt.Errorf("%w: detached: %w; encapsulated: %w", ErrVerificationSetup, detachedErr, encapErr),
	}
}

// decodeArmor strips PEM armor when present.
func decodeArmor(input []byte) ([]byte, error) {
	if !bytes.Contains(input, []byte("-----BEGIN ")) {
		return input, nil
	}
	block, err := pemutil.Decode(input)
	if err != nil {
		return nil, err
	}
	return block.Bytes, nil
}

// verifyDetached handles the length-prefixed detached-combined format.
func verifyDetached(data []byte, trusted *certchain.Certificate) (*Result, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: envelope holds %d bytes", ErrFraming, len(data))
	}
	prefixed := binary.BigEndian.Uint32(data)
	if uint64(prefixed) <= 4 || uint64(prefixed) > uint64(len(data))-4 {
		return nil, fmt.Errorf("%w: prefix %d with %d bytes total", ErrFraming, prefixed, len(data))
	}

	sigStruct := data[4 : 4+prefixed]
	payload := data[4+prefixed:]

	signedData, err := cms.Parse(sigStruct)
	if err != nil {
		return nil, err
	}
	return checkSignature(signedData, payload, trusted)
}

// verifyEncapsulated handles the legacy payload-embedding format.
func verifyEncapsulated(data []byte, trusted *certchain.Certificate) (*Result, error) {
	signedData, err := cms.Parse(data)
	if err != nil {
		return nil, err
	}
	payload := signedData.Payload()
	if payload == nil {
		return nil, fmt.Errorf("structure embeds no content")
	}
	return checkSignature(signedData, payload, trusted)
}

// checkSignature verifies the signer-info signature over payload. A failed
// cryptographic check is a negative verdict, not an error.
func checkSignature(signedData *cms.SignedData, payload []byte, trusted *certchain.Certificate) (*Result, error) {
	signerInfo, err := signedData.SignerInfo()
	if err != nil {
		return nil, err
	}
	digest, err := signerInfo.SignerDigest()
	if err != nil {
		return nil, err
	}

	chain, err := embeddedChain(signedData, signerInfo)
	if err != nil && trusted == nil {
		return nil, err
	}

	verifyCert := trusted
	if verifyCert == nil {
		verifyCert = chain.Signer()
	}
	pub, err := verifyCert.PublicKey()
	if err != nil {
		return nil, err
	}

	if err := cms.VerifyDigestSignature(pub, digest, payload, signerInfo.Signature); err != nil {
		if errors.Is(err, cms.ErrInvalidSignature) {
			return &Result{Verified: false}, nil
		}
		return nil, err
	}

	return &Result{Verified: true, Payload: payload, Chain: chain}, nil
}

// embeddedChain extracts the embedded certificates in embedding order,
// rotated so the certificate named by the signer-info comes first. Embedding
// order is trusted beyond that; no subject/issuer re-sort.
func embeddedChain(signedData *cms.SignedData, signerInfo *cms.SignerInfo) (certchain.Chain, error) {
	raw, err := signedData.CertificateList()
	if err != nil {
		return nil, err
	}

	chain := make(certchain.Chain, 0, len(raw))
	for _, cert := range raw {
		chain = append(chain, certchain.FromX509(cert))
	}

	for i, cert := range chain {
		x := cert.X509()
		if x.SerialNumber.Cmp(signerInfo.SID.SerialNumber) == 0 &&
			bytes.Equal(x.RawIssuer, signerInfo.SID.Issuer.FullBytes) {
			if i != 0 {
				reordered := append(certchain.Chain{cert}, chain[:i]...)
				chain = append(reordered, chain[i+1:]...)
			}
			break
		}
	}
	return chain, nil
}
