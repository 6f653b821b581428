package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/signbridge/signbridge/internal/certchain"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Certificate operations",
}

var certInspectCmd = &cobra.Command{
	Use:   "inspect <pem-file>",
	Short: "Inspect PEM certificates",
	Long: `Parse one or more PEM certificates and display their attributes in
input order.

Examples:
  signbridge cert inspect signer.crt
  signbridge cert inspect chain.pem`,
	Args: cobra.ExactArgs(1),
	RunE: runCertInspect,
}

func init() {
	certCmd.AddCommand(certInspectCmd)
}

func runCertInspect(cmd *cobra.Command, args []string) error {
	pemText, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	chain, err := certchain.ParseChain(pemText)
	if err != nil {
		return err
	}

	for i, cert := range chain {
		x := cert.X509()
		cmd.Printf("Certificate [%d]\n", i)
		cmd.Printf("  Subject:    %s\n", x.Subject.String())
		cmd.Printf("  Issuer:     %s\n", x.Issuer.String())
		cmd.Printf("  Serial:     %s\n", cert.SerialNumber().String())
		cmd.Printf("  Not Before: %s\n", cert.NotBefore().UTC().Format(time.RFC3339))
		cmd.Printf("  Not After:  %s\n", cert.NotAfter().UTC().Format(time.RFC3339))
		if cert.IsSelfSigned() {
			cmd.Printf("  Self-signed\n")
		}
		cmd.Println()
	}
	return nil
}
