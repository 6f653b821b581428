package certchain

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/signbridge/signbridge/internal/pemutil"
)

// newTestCertDER creates a self-signed certificate and returns its DER encoding.
func newTestCertDER(t *testing.T, commonName string) []byte {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("Failed to generate serial: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"Test Org"},
			Country:      []string{"ES"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	return der
}

func TestParseSingle(t *testing.T) {
	der := newTestCertDER(t, "single.example")

	cert, err := ParseSingle(der)
	if err != nil {
		t.Fatalf("ParseSingle failed: %v", err)
	}

	if got := cert.SerialNumber(); got.Sign() <= 0 {
		t.Errorf("SerialNumber = %v, want positive", got)
	}
	if _, err := cert.PublicKey(); err != nil {
		t.Errorf("PublicKey failed: %v", err)
	}
	if !cert.IsSelfSigned() {
		t.Error("self-signed test certificate not detected as self-signed")
	}

	var foundCN bool
	for _, attr := range cert.Subject() {
		if attr.Type == "CN" && attr.Value == "single.example" {
			foundCN = true
		}
	}
	if !foundCN {
		t.Errorf("CN attribute not found in subject: %v", cert.Subject())
	}
}

func TestParseSingleInvalidDER(t *testing.T) {
	_, err := ParseSingle([]byte{0x30, 0x03, 0x01, 0x01, 0xff})
	if !errors.Is(err, ErrAsnDecode) {
		t.Errorf("expected ErrAsnDecode, got %v", err)
	}
}

func TestParseChainOrder(t *testing.T) {
	names := []string{"first.example", "second.example", "third.example"}
	var pemText []byte
	for _, name := range names {
		pemText = append(pemText, pemutil.Encode(pemutil.CertificateLabel, newTestCertDER(t, name))...)
	}

	chain, err := ParseChain(pemText)
	if err != nil {
		t.Fatalf("ParseChain failed: %v", err)
	}
	if len(chain) != len(names) {
		t.Fatalf("got %d certificates, want %d", len(chain), len(names))
	}
	for i, name := range names {
		if cn := chain[i].X509().Subject.CommonName; cn != name {
			t.Errorf("chain[%d].CN = %q, want %q", i, cn, name)
		}
	}
}

func TestParseChainNoBlocks(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"plain text", "nothing to see here"},
		{"wrong label only", string(pemutil.Encode("PRIVATE KEY", []byte("not a cert")))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseChain([]byte(tc.input))
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("expected ErrMalformedInput, got %v", err)
			}
		})
	}
}

func TestParseChainBadCertificateDER(t *testing.T) {
	pemText := pemutil.Encode(pemutil.CertificateLabel, []byte("definitely not DER"))
	_, err := ParseChain(pemText)
	if !errors.Is(err, ErrAsnDecode) {
		t.Errorf("expected ErrAsnDecode, got %v", err)
	}
}

func TestCertificateEqual(t *testing.T) {
	derA := newTestCertDER(t, "a.example")
	derB := newTestCertDER(t, "b.example")

	a1, _ := ParseSingle(derA)
	a2, _ := ParseSingle(derA)
	b, _ := ParseSingle(derB)

	if !a1.Equal(a2) {
		t.Error("certificates with identical DER must be equal")
	}
	if a1.Equal(b) {
		t.Error("distinct certificates must not be equal")
	}
}

func TestChainEncodePEMRoundTrip(t *testing.T) {
	original := Chain{}
	for _, name := range []string{"signer.example", "ca.example"} {
		cert, err := ParseSingle(newTestCertDER(t, name))
		if err != nil {
			t.Fatalf("ParseSingle failed: %v", err)
		}
		original = append(original, cert)
	}

	parsed, err := ParseChain(original.EncodePEM())
	if err != nil {
		t.Fatalf("ParseChain failed: %v", err)
	}
	if len(parsed) != len(original) {
		t.Fatalf("got %d certificates, want %d", len(parsed), len(original))
	}
	for i := range original {
		if !parsed[i].Equal(original[i]) {
			t.Errorf("chain[%d] does not round-trip", i)
		}
	}
}
