//go:build cgo

// This file implements the PKCS#11 key backend. A signing key held in a
// hardware or software token is exposed as a Signer; the digest is computed
// by the caller and only the private-key operation runs inside the token.
package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/miekg/pkcs11"
)

// PKCS11Config holds PKCS#11 configuration.
type PKCS11Config struct {
	// ModulePath is the path to the PKCS#11 library (.so/.dylib/.dll).
	ModulePath string

	// TokenLabel identifies the token; ignored when SlotID is set.
	TokenLabel string

	// PIN is the user PIN for the token.
	PIN string

	// KeyLabel is the CKA_LABEL of the key to use.
	KeyLabel string

	// KeyID is the CKA_ID of the key, hex encoded.
	KeyID string

	// SlotID selects the slot directly (less portable than TokenLabel).
	SlotID *uint
}

// PKCS11Signer implements Signer backed by a PKCS#11 token key.
type PKCS11Signer struct {
	mu      sync.Mutex
	ctx     *pkcs11.Ctx
	session pkcs11.SessionHandle
	priv    pkcs11.ObjectHandle
	pub     crypto.PublicKey
	alg     AlgorithmID
	closed  bool
}

var _ Signer = (*PKCS11Signer)(nil)

var (
	openSignersMu sync.Mutex
	openSigners   = make(map[*PKCS11Signer]struct{})
)

// NewPKCS11Signer opens the module, logs into the token and locates the key.
// The returned signer owns its session; call Close when done.
func NewPKCS11Signer(cfg PKCS11Config) (*PKCS11Signer, error) {
	ctx := pkcs11.New(cfg.ModulePath)
	if ctx == nil {
		return nil, fmt.Errorf("failed to load PKCS#11 module: %s", cfg.ModulePath)
	}

	if err := ctx.Initialize(); err != nil {
		if p11err, ok := err.(pkcs11.Error); !ok || p11err != pkcs11.CKR_CRYPTOKI_ALREADY_INITIALIZED {
			ctx.Destroy()
			return nil, fmt.Errorf("failed to initialize PKCS#11 module: %w", err)
		}
	}

	slot, err := resolveSlot(ctx, cfg)
	if err != nil {
		ctx.Destroy()
		return nil, err
	}

	session, err := ctx.OpenSession(slot, pkcs11.CKF_SERIAL_SESSION)
	if err != nil {
		ctx.Destroy()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	if cfg.PIN != "" {
		if err := ctx.Login(session, pkcs11.CKU_USER, cfg.PIN); err != nil {
			if e, ok := err.(pkcs11.Error); !ok || e != pkcs11.CKR_USER_ALREADY_LOGGED_IN {
				_ = ctx.CloseSession(session)
				ctx.Destroy()
				return nil, fmt.Errorf("failed to login: %w", err)
			}
		}
	}

	s := &PKCS11Signer{ctx: ctx, session: session}

	if err := s.findKeyPair(cfg); err != nil {
		s.teardown()
		return nil, err
	}

	alg, err := AlgorithmForPublicKey(s.pub)
	if err != nil {
		s.teardown()
		return nil, err
	}
	s.alg = alg

	openSignersMu.Lock()
	openSigners[s] = struct{}{}
	openSignersMu.Unlock()

	return s, nil
}

// resolveSlot finds the slot by ID or token label.
func resolveSlot(ctx *pkcs11.Ctx, cfg PKCS11Config) (uint, error) {
	if cfg.SlotID != nil {
		return *cfg.SlotID, nil
	}
	if cfg.TokenLabel == "" {
		return 0, fmt.Errorf("either slot ID or token label is required")
	}

	slots, err := ctx.GetSlotList(true)
	if err != nil {
		return 0, fmt.Errorf("failed to list slots: %w", err)
	}
	for _, slot := range slots {
		info, err := ctx.GetTokenInfo(slot)
		if err != nil {
			continue
		}
		if info.Label == cfg.TokenLabel {
			return slot, nil
		}
	}
	return 0, fmt.Errorf("token %q not found", cfg.TokenLabel)
}

// findKeyPair locates the private key handle and extracts the public key.
func (s *PKCS11Signer) findKeyPair(cfg PKCS11Config) error {
	selector := []*pkcs11.Attribute{}
	if cfg.KeyLabel != "" {
		selector = append(selector, pkcs11.NewAttribute(pkcs11.CKA_LABEL, cfg.KeyLabel))
	}
	if cfg.KeyID != "" {
		id, err := hex.DecodeString(cfg.KeyID)
		if err != nil {
			return fmt.Errorf("invalid key ID hex: %w", err)
		}
		selector = append(selector, pkcs11.NewAttribute(pkcs11.CKA_ID, id))
	}

	priv, err := s.findObject(append([]*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
	}, selector...))
	if err != nil {
		return fmt.Errorf("private key not found: %w", err)
	}
	s.priv = priv

	pub, err := s.findObject(append([]*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PUBLIC_KEY),
	}, selector...))
	if err != nil {
		return fmt.Errorf("public key not found: %w", err)
	}

	pubKey, err := s.extractPublicKey(pub)
	if err != nil {
		return err
	}
	s.pub = pubKey
	return nil
}

// findObject returns the first object matching the template.
func (s *PKCS11Signer) findObject(template []*pkcs11.Attribute) (pkcs11.ObjectHandle, error) {
	if err := s.ctx.FindObjectsInit(s.session, template); err != nil {
		return 0, fmt.Errorf("FindObjectsInit: %w", err)
	}
	handles, _, err := s.ctx.FindObjects(s.session, 1)
	finalErr := s.ctx.FindObjectsFinal(s.session)
	if err != nil {
		return 0, fmt.Errorf("FindObjects: %w", err)
	}
	if finalErr != nil {
		return 0, fmt.Errorf("FindObjectsFinal: %w", finalErr)
	}
	if len(handles) == 0 {
		return 0, fmt.Errorf("no matching object")
	}
	return handles[0], nil
}

// extractPublicKey reads RSA or EC public key attributes from the token.
func (s *PKCS11Signer) extractPublicKey(obj pkcs11.ObjectHandle) (crypto.PublicKey, error) {
	typeAttr, err := s.ctx.GetAttributeValue(s.session, obj, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, nil),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read key type: %w", err)
	}
	keyType := bytesToUint(typeAttr[0].Value)

	switch keyType {
	case pkcs11.CKK_RSA:
		attrs, err := s.ctx.GetAttributeValue(s.session, obj, []*pkcs11.Attribute{
			pkcs11.NewAttribute(pkcs11.CKA_MODULUS, nil),
			pkcs11.NewAttribute(pkcs11.CKA_PUBLIC_EXPONENT, nil),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read RSA attributes: %w", err)
		}
		n := new(big.Int).SetBytes(attrs[0].Value)
		e := new(big.Int).SetBytes(attrs[1].Value)
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil

	case pkcs11.CKK_EC:
		attrs, err := s.ctx.GetAttributeValue(s.session, obj, []*pkcs11.Attribute{
			pkcs11.NewAttribute(pkcs11.CKA_EC_PARAMS, nil),
			pkcs11.NewAttribute(pkcs11.CKA_EC_POINT, nil),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read EC attributes: %w", err)
		}
		return parseECPublicKey(attrs[0].Value, attrs[1].Value)

	default:
		return nil, fmt.Errorf("%w: PKCS#11 key type %d", ErrUnsupportedKey, keyType)
	}
}

// Named curve OIDs for CKA_EC_PARAMS.
var (
	oidP256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}
	oidP384 = asn1.ObjectIdentifier{1, 3, 132, 0, 34}
	oidP521 = asn1.ObjectIdentifier{1, 3, 132, 0, 35}
)

func parseECPublicKey(params, point []byte) (*ecdsa.PublicKey, error) {
	var oid asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(params, &oid); err != nil {
		return nil, fmt.Errorf("failed to parse EC params: %w", err)
	}

	var curve elliptic.Curve
	switch {
	case oid.Equal(oidP256):
		curve = elliptic.P256()
	case oid.Equal(oidP384):
		curve = elliptic.P384()
	case oid.Equal(oidP521):
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("%w: EC curve %v", ErrUnsupportedKey, oid)
	}

	// CKA_EC_POINT is a DER OCTET STRING wrapping the uncompressed point.
	var raw []byte
	if _, err := asn1.Unmarshal(point, &raw); err != nil {
		raw = point
	}
	x, y := elliptic.Unmarshal(curve, raw)
	if x == nil {
		return nil, fmt.Errorf("invalid EC point")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// digestInfoPrefix is the DER DigestInfo header prepended for CKM_RSA_PKCS.
var digestInfoPrefix = map[crypto.Hash][]byte{
	crypto.SHA256: {0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20},
	crypto.SHA384: {0x30, 0x41, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x02, 0x05, 0x00, 0x04, 0x30},
	crypto.SHA512: {0x30, 0x51, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x03, 0x05, 0x00, 0x04, 0x40},
}

// Algorithm returns the algorithm identifier.
func (s *PKCS11Signer) Algorithm() AlgorithmID { return s.alg }

// Public returns the public key extracted from the token.
func (s *PKCS11Signer) Public() crypto.PublicKey { return s.pub }

// Sign performs the private-key operation inside the token.
// digest must already be hashed with opts.HashFunc().
func (s *PKCS11Signer) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("signer is closed")
	}

	switch s.pub.(type) {
	case *rsa.PublicKey:
		prefix, ok := digestInfoPrefix[opts.HashFunc()]
		if !ok {
			return nil, fmt.Errorf("%w: hash %v for RSA token keys", ErrUnsupportedKey, opts.HashFunc())
		}
		mech := []*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_RSA_PKCS, nil)}
		if err := s.ctx.SignInit(s.session, mech, s.priv); err != nil {
			return nil, fmt.Errorf("SignInit: %w", err)
		}
		return s.ctx.Sign(s.session, append(prefix, digest...))

	case *ecdsa.PublicKey:
		mech := []*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_ECDSA, nil)}
		if err := s.ctx.SignInit(s.session, mech, s.priv); err != nil {
			return nil, fmt.Errorf("SignInit: %w", err)
		}
		raw, err := s.ctx.Sign(s.session, digest)
		if err != nil {
			return nil, fmt.Errorf("Sign: %w", err)
		}
		return ecdsaRawToASN1(raw)

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, s.pub)
	}
}

// ecdsaRawToASN1 converts a token's r||s signature to ASN.1 form.
func ecdsaRawToASN1(raw []byte) ([]byte, error) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return nil, fmt.Errorf("invalid ECDSA signature length %d", len(raw))
	}
	half := len(raw) / 2
	sig := struct{ R, S *big.Int }{
		R: new(big.Int).SetBytes(raw[:half]),
		S: new(big.Int).SetBytes(raw[half:]),
	}
	return asn1.Marshal(sig)
}

// Close tears down the session and module context.
func (s *PKCS11Signer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	openSignersMu.Lock()
	delete(openSigners, s)
	openSignersMu.Unlock()

	s.teardown()
	return nil
}

func (s *PKCS11Signer) teardown() {
	_ = s.ctx.Logout(s.session)
	_ = s.ctx.CloseSession(s.session)
	if err := s.ctx.Finalize(); err != nil {
		if e, ok := err.(pkcs11.Error); !ok || e != pkcs11.CKR_CRYPTOKI_NOT_INITIALIZED {
			// nothing useful to do at teardown
			_ = e
		}
	}
	s.ctx.Destroy()
}

// CloseAllSigners closes every open PKCS#11 signer.
// Call at program exit to avoid crashes inside module finalizers.
func CloseAllSigners() {
	openSignersMu.Lock()
	signers := make([]*PKCS11Signer, 0, len(openSigners))
	for s := range openSigners {
		signers = append(signers, s)
	}
	openSignersMu.Unlock()

	for _, s := range signers {
		_ = s.Close()
	}
}

func bytesToUint(b []byte) uint {
	var v uint
	// CK_ULONG is little endian on all supported platforms.
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint(b[i])
	}
	return v
}
