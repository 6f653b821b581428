package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signbridge/signbridge/internal/audit"
	"github.com/signbridge/signbridge/internal/certchain"
	"github.com/signbridge/signbridge/internal/envelope"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <envelope-file>",
	Short: "Verify a signed envelope and recover its payload",
	Long: `Verify a signed envelope.

Both envelope formats are recognized: the detached-combined format is
tried first, then the encapsulated format. On success the original
payload and the certificate chain are recovered.

By default the certificate embedded by the signer is used for the check;
--cert pins an explicit certificate instead.

Examples:
  # Verify and recover the payload
  signbridge verify report.sig --out report.pdf

  # Verify against a pinned certificate
  signbridge verify report.sig --cert signer.crt

  # Show the recovered chain without writing the payload
  signbridge verify report.sig`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

// Command flags
var (
	verifyCert   string
	verifyOutput string
)

func init() {
	verifyCmd.Flags().StringVar(&verifyCert, "cert", "", "Trusted certificate (PEM); overrides the embedded one")
	verifyCmd.Flags().StringVarP(&verifyOutput, "out", "o", "", "Write the recovered payload to this file")
}

func runVerify(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read envelope: %w", err)
	}

	var trusted *certchain.Certificate
	if verifyCert != "" {
		pemText, err := os.ReadFile(verifyCert)
		if err != nil {
			return fmt.Errorf("failed to read certificate: %w", err)
		}
		chain, err := certchain.ParseChain(pemText)
		if err != nil {
			return fmt.Errorf("failed to parse certificate: %w", err)
		}
		trusted = chain.Signer()
	}

	result, err := envelope.Verify(data, trusted)
	if auditErr := writeVerifyAudit(args[0], result, err); auditErr != nil {
		return auditErr
	}
	if err != nil {
		return err
	}

	if !result.Verified {
		return fmt.Errorf("signature verification failed: envelope is structurally valid but the signature does not match")
	}

	cmd.Printf("Verified: true [%s]\n", result.Format)
	cmd.Printf("Payload:  %d bytes\n", len(result.Payload))
	cmd.Printf("Chain:    %d certificate(s)\n", len(result.Chain))
	for i, cert := range result.Chain {
		x := cert.X509()
		role := "intermediate"
		if i == 0 {
			role = "signer"
		} else if cert.IsSelfSigned() {
			role = "root"
		}
		cmd.Printf("  [%d] %s (%s)\n", i, x.Subject.String(), role)
	}

	if verifyOutput != "" {
		if err := writeOutput(cmd, verifyOutput, result.Payload); err != nil {
			return err
		}
		if verifyOutput != "-" {
			cmd.Printf("Payload written to %s\n", verifyOutput)
		}
	}
	return nil
}

func writeVerifyAudit(path string, result *envelope.Result, opErr error) error {
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
		WithObject(audit.Object{Type: "envelope", Path: path}).
		WithContext(ctx)
	if err := auditLog.Write(event); err != nil {
		return fmt.Errorf("audit write failed: %w", err)
	}
	return nil
}
