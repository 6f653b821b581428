package main

import (
	"os"
	"strings"
	"testing"

	"github.com/signbridge/signbridge/internal/audit"
)

// Note: t.Parallel() is not used because Cobra commands share global flag state.
// Running tests in parallel causes race conditions with flag access.

// =============================================================================
// Sign Tests (Table-Driven)
// =============================================================================

func TestF_Sign(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		format  string
		wantErr bool
	}{
		{
			name: "[Functional] Sign: DefaultDetached",
		},
		{
			name: "[Functional] Sign: SHA384",
			hash: "sha384",
		},
		{
			name: "[Functional] Sign: SHA3-256",
			hash: "sha3-256",
		},
		{
			name:   "[Functional] Sign: Encapsulated",
			format: "encapsulated",
		},
		{
			name:    "[Functional] Sign: InvalidHash",
			hash:    "md5",
			wantErr: true,
		},
		{
			name:    "[Functional] Sign: InvalidFormat",
			format:  "inline",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestContext(t)
			resetSignFlags()
			resetAuditFlags()

			certPath, keyPath := tc.setupSigningPair()
			dataPath := tc.writeFile("data.txt", "Test content for "+tt.name)
			outPath := tc.path("data.sig")

			args := []string{"sign",
				"--data", dataPath,
				"--cert", certPath,
				"--key", keyPath,
				"--out", outPath,
			}
			if tt.hash != "" {
				args = append(args, "--hash", tt.hash)
			}
			if tt.format != "" {
				args = append(args, "--format", tt.format)
			}

			_, err := executeCommand(rootCmd, args...)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Sign failed: %v", err)
			}

			envelope, readErr := os.ReadFile(outPath)
			if readErr != nil {
				t.Fatalf("Failed to read envelope: %v", readErr)
			}
			if !strings.Contains(string(envelope), "-----BEGIN PKCS11-----") {
				t.Error("Envelope is not PEM-armored with the PKCS11 label")
			}
		})
	}
}

func TestF_Sign_RequiresKeySource(t *testing.T) {
	tc := newTestContext(t)
	resetSignFlags()
	resetAuditFlags()

	certPath, _ := tc.setupSigningPair()
	dataPath := tc.writeFile("data.txt", "unsigned")

	_, err := executeCommand(rootCmd, "sign",
		"--data", dataPath,
		"--cert", certPath,
		"--out", tc.path("data.sig"),
	)
	if err == nil {
		t.Fatal("Expected error when no key source is given")
	}
}

// =============================================================================
// Sign + Verify Round Trip Tests
// =============================================================================

func TestF_SignVerify_RoundTrip(t *testing.T) {
	for _, format := range []string{"detached", "encapsulated"} {
		t.Run(format, func(t *testing.T) {
			tc := newTestContext(t)
			resetSignFlags()
			resetVerifyFlags()
			resetAuditFlags()

			certPath, keyPath := tc.setupSigningPair()
			content := "Round trip payload (" + format + ")"
			dataPath := tc.writeFile("data.txt", content)
			sigPath := tc.path("data.sig")

			if _, err := executeCommand(rootCmd, "sign",
				"--data", dataPath,
				"--cert", certPath,
				"--key", keyPath,
				"--format", format,
				"--out", sigPath,
			); err != nil {
				t.Fatalf("Sign failed: %v", err)
			}

			resetVerifyFlags()
			recovered := tc.path("recovered.txt")
			output, err := executeCommand(rootCmd, "verify", sigPath, "--out", recovered)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if !strings.Contains(output, "Verified: true") {
				t.Errorf("Expected positive verdict in output, got:\n%s", output)
			}
			if !strings.Contains(output, format) {
				t.Errorf("Expected format %q in output, got:\n%s", format, output)
			}

			payload, readErr := os.ReadFile(recovered)
			if readErr != nil {
				t.Fatalf("Failed to read recovered payload: %v", readErr)
			}
			if string(payload) != content {
				t.Errorf("Recovered payload = %q, want %q", payload, content)
			}
		})
	}
}

func TestF_Verify_TamperedPayloadFails(t *testing.T) {
	tc := newTestContext(t)
	resetSignFlags()
	resetVerifyFlags()
	resetAuditFlags()

	certPath, keyPath := tc.setupSigningPair()
	dataPath := tc.writeFile("data.txt", "original content")
	sigPath := tc.path("data.sig")

	if _, err := executeCommand(rootCmd, "sign",
		"--data", dataPath,
		"--cert", certPath,
		"--key", keyPath,
		"--out", sigPath,
	); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	// Flip one payload byte inside the armored envelope. The payload is the
	// tail of the framed structure, so the last base64 characters cover it.
	envelope, err := os.ReadFile(sigPath)
	if err != nil {
		t.Fatalf("Failed to read envelope: %v", err)
	}
	idx := strings.LastIndex(string(envelope), "A")
	if idx < 0 {
		idx = len(envelope) / 2
	}
	envelope[idx] = 'B'
	tampered := tc.writeFile("tampered.sig", string(envelope))

	resetVerifyFlags()
	if _, err := executeCommand(rootCmd, "verify", tampered); err == nil {
		t.Fatal("Expected verification of tampered envelope to fail")
	}
}

func TestF_Verify_PinnedCertificateMismatch(t *testing.T) {
	tc := newTestContext(t)
	resetSignFlags()
	resetVerifyFlags()
	resetAuditFlags()

	certPath, keyPath := tc.setupSigningPair()
	dataPath := tc.writeFile("data.txt", "pinned content")
	sigPath := tc.path("data.sig")

	if _, err := executeCommand(rootCmd, "sign",
		"--data", dataPath,
		"--cert", certPath,
		"--key", keyPath,
		"--out", sigPath,
	); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	// A different identity pinned as trusted must reject the signature.
	otherCert, _ := newTestContext(t).setupSigningPair()

	resetVerifyFlags()
	if _, err := executeCommand(rootCmd, "verify", sigPath, "--cert", otherCert); err == nil {
		t.Fatal("Expected verification against an unrelated pinned certificate to fail")
	}
}

// =============================================================================
// Audit Log Integration
// =============================================================================

func TestF_Sign_WritesAuditLog(t *testing.T) {
	tc := newTestContext(t)
	resetSignFlags()
	resetAuditFlags()

	certPath, keyPath := tc.setupSigningPair()
	dataPath := tc.writeFile("data.txt", "audited content")
	logPath := tc.path("audit.jsonl")

	if _, err := executeCommand(rootCmd, "sign",
		"--audit-log", logPath,
		"--data", dataPath,
		"--cert", certPath,
		"--key", keyPath,
		"--out", tc.path("data.sig"),
	); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	count, err := audit.VerifyChain(logPath)
	if err != nil {
		t.Fatalf("Audit chain verification failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Audit log entries = %d, want 1", count)
	}

	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	if !strings.Contains(string(raw), string(audit.EventEnvelopeSign)) {
		t.Errorf("Audit log missing %s event:\n%s", audit.EventEnvelopeSign, raw)
	}
}

// =============================================================================
// Certificate Inspection
// =============================================================================

func TestF_CertInspect(t *testing.T) {
	tc := newTestContext(t)
	resetAuditFlags()

	certPath, _ := tc.setupSigningPair()

	output, err := executeCommand(rootCmd, "cert", "inspect", certPath)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !strings.Contains(output, "CLI Test Signer") {
		t.Errorf("Expected subject CN in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Self-signed") {
		t.Errorf("Expected self-signed marker in output, got:\n%s", output)
	}
}

func TestF_CertInspect_RejectsGarbage(t *testing.T) {
	tc := newTestContext(t)
	resetAuditFlags()

	garbage := tc.writeFile("garbage.pem", "not a certificate")
	if _, err := executeCommand(rootCmd, "cert", "inspect", garbage); err == nil {
		t.Fatal("Expected error for non-PEM input")
	}
}
