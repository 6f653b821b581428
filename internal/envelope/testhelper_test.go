package envelope

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/signbridge/signbridge/internal/certchain"
)

// testIdentity bundles a key with its certificate.
type testIdentity struct {
	Key  crypto.Signer
	Cert *certchain.Certificate
}

func newSerial(t *testing.T) *big.Int {
	t.Helper()
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("Failed to generate serial number: %v", err)
	}
	return serial
}

// newSelfSignedIdentity creates a self-signed signer for testing.
func newSelfSignedIdentity(t *testing.T, commonName string) *testIdentity {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          newSerial(t),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	cert, err := certchain.ParseSingle(der)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}
	return &testIdentity{Key: key, Cert: cert}
}

// newIssuedIdentity creates a signer whose certificate is issued by parent.
func newIssuedIdentity(t *testing.T, commonName string, parent *testIdentity) *testIdentity {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: newSerial(t),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-1 * time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, parent.Cert.X509(), &key.PublicKey, parent.Key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	cert, err := certchain.ParseSingle(der)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}
	return &testIdentity{Key: key, Cert: cert}
}
