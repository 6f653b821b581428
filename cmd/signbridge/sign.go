package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signbridge/signbridge/internal/audit"
	"github.com/signbridge/signbridge/internal/cms"
	"github.com/signbridge/signbridge/internal/envelope"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a file into a signed envelope",
	Long: `Sign a file with an X.509 certificate and private key.

By default, produces a detached-combined envelope: a length-prefixed
signature structure followed by the raw payload, PEM-armored. Use
--format encapsulated to embed the payload inside the signed structure
instead.

The private key may come from a PEM file (--key), a PKCS#11 token
(--key-config), or a remote signing device (--remote-config plus
--remote-key-id).

Examples:
  # Sign with a local key
  signbridge sign --data report.pdf --cert signer.crt --key signer.key -o report.sig

  # Sign with a certificate chain embedded
  signbridge sign --data report.pdf --cert signer.crt --chain intermediates.pem --key signer.key -o report.sig

  # Sign with SHA-384
  signbridge sign --data report.pdf --cert signer.crt --key signer.key --hash sha384 -o report.sig

  # Sign with a key held on a remote device
  signbridge sign --data report.pdf --cert signer.crt --remote-config device.yaml --remote-key-id key-1 -o report.sig`,
	RunE: runSign,
}

// Command flags
var (
	signData        string
	signCert        string
	signChain       string
	signKey         string
	signKeyConfig   string
	signRemoteCfg   string
	signRemoteKeyID string
	signHash        string
	signFormat      string
	signOutput      string
)

func init() {
	signCmd.Flags().StringVar(&signData, "data", "", "File to sign (required)")
	signCmd.Flags().StringVar(&signCert, "cert", "", "Signer certificate (PEM, required)")
	signCmd.Flags().StringVar(&signChain, "chain", "", "Additional certificates to embed (PEM)")
	signCmd.Flags().StringVar(&signKey, "key", "", "Signer private key (PEM)")
	signCmd.Flags().StringVar(&signKeyConfig, "key-config", "", "PKCS#11 key configuration file (YAML)")
	signCmd.Flags().StringVar(&signRemoteCfg, "remote-config", "", "Remote device configuration file (YAML)")
	signCmd.Flags().StringVar(&signRemoteKeyID, "remote-key-id", "", "Key identifier on the remote device")
	signCmd.Flags().StringVar(&signHash, "hash", cms.DefaultDigest, "Hash algorithm (sha256, sha384, sha512, sha3-256, sha3-384, sha3-512)")
	signCmd.Flags().StringVar(&signFormat, "format", "detached", "Envelope format (detached or encapsulated)")
	signCmd.Flags().StringVarP(&signOutput, "out", "o", "", "Output file (required)")

	_ = signCmd.MarkFlagRequired("data")
	_ = signCmd.MarkFlagRequired("cert")
	_ = signCmd.MarkFlagRequired("out")
}

func runSign(cmd *cobra.Command, args []string) error {
	payload, err := os.ReadFile(signData)
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	cert, chain, err := loadSignerCertificate(signCert, signChain)
	if err != nil {
		return err
	}

	req := envelope.SignRequest{
		Payload:     payload,
		Certificate: cert,
		Chain:       chain,
		Digest:      signHash,
	}

	keySource := "local"
	if signRemoteCfg != "" {
		if signRemoteKeyID == "" {
			return fmt.Errorf("--remote-key-id required with --remote-config")
		}
		client, _, err := loadRemoteClient(signRemoteCfg)
		if err != nil {
			return err
		}
		req.Remote = client
		req.RemoteKeyID = signRemoteKeyID
		keySource = "remote"
	} else {
		key, err := loadSigningKey(signKey, signKeyConfig)
		if err != nil {
			return err
		}
		req.Key = key
	}

	var armored []byte
	switch signFormat {
	case "detached":
		armored, err = envelope.SignDetached(cmd.Context(), req)
	case "encapsulated":
		armored, err = envelope.SignEncapsulated(cmd.Context(), req)
	default:
		return fmt.Errorf("unknown format %q (detached or encapsulated)", signFormat)
	}

	if auditErr := writeSignAudit(keySource, err); auditErr != nil {
		return auditErr
	}
	if err != nil {
		return err
	}

	if err := writeOutput(cmd, signOutput, armored); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}

	if signOutput != "" && signOutput != "-" {
		cmd.Printf("Signed %s (%d bytes) -> %s [%s, %s]\n",
			signData, len(payload), signOutput, signFormat, signHash)
	}
	return nil
}

func writeSignAudit(keySource string, opErr error) error {
	result := audit.ResultSuccess
	reason := ""
	if opErr != nil {
		result = audit.ResultFailure
		reason = opErr.Error()
	}
	event := audit.NewEvent(audit.EventEnvelopeSign, result).
		WithObject(audit.Object{Type: "envelope", Path: signData}).
		WithContext(audit.Context{
			Format:    signFormat,
			Algorithm: signHash,
			KeySource: keySource,
			Reason:    reason,
		})
	if err := auditLog.Write(event); err != nil {
		return fmt.Errorf("audit write failed: %w", err)
	}
	return nil
}
