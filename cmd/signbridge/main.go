// Command signbridge signs and verifies file envelopes with X.509
// certificates, using local keys, PKCS#11 tokens, or a remote signing
// device.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signbridge/signbridge/internal/audit"
	"github.com/signbridge/signbridge/internal/crypto"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	auditLogPath   string
	auditLogFormat string
)

// auditLog is the process-wide audit writer, set up in PersistentPreRunE.
var auditLog audit.Writer = audit.NopWriter{}

func main() {
	// Setup signal handler for clean PKCS#11 shutdown
	setupSignalHandler()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		crypto.CloseAllSigners() // Cleanup PKCS#11 before exit
		os.Exit(1)
	}

	crypto.CloseAllSigners()
}

// setupSignalHandler releases PKCS#11 resources on SIGINT/SIGTERM so token
// sessions are not left open.
func setupSignalHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		crypto.CloseAllSigners()
		os.Exit(0)
	}()
}

var rootCmd = &cobra.Command{
	Use:   "signbridge",
	Short: "SignBridge - file signing with local, token, or remote keys",
	Long: `SignBridge signs arbitrary files with an X.509 certificate and later
verifies those signatures, recovering the original file and the certificate
chain that produced it.

Envelopes come in two wire formats:
  detached:      length-prefixed signature structure followed by the raw
                 payload (default; peak memory stays proportional to the
                 payload)
  encapsulated:  payload embedded inside the signed structure (for small,
                 self-contained archives)

Private keys may live in a PEM file, a PKCS#11 token, or on a remote
signing device reached over TCP or a local socket.

Examples:
  # Sign a file with a local key
  signbridge sign --data report.pdf --cert signer.crt --key signer.key -o report.sig

  # Sign with a key on a remote device
  signbridge sign --data report.pdf --cert signer.crt --remote-config device.yaml --remote-key-id key-1 -o report.sig

  # Verify and recover the payload
  signbridge verify report.sig --out report.pdf

  # Probe a remote signing device
  signbridge remote ping --config device.yaml`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if auditLogPath == "" {
			auditLogPath = os.Getenv("SIGNBRIDGE_AUDIT_LOG")
		}
		if auditLogPath == "" {
			return nil
		}

		var err error
		switch auditLogFormat {
		case "", "json":
			auditLog, err = audit.NewFileWriter(auditLogPath)
		case "cbor":
			auditLog, err = audit.NewCBORWriter(auditLogPath)
		default:
			return fmt.Errorf("unknown audit format %q (json or cbor)", auditLogFormat)
		}
		if err != nil {
			return fmt.Errorf("failed to initialize audit log: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		err := auditLog.Close()
		auditLog = audit.NopWriter{}
		return err
	},
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set SIGNBRIDGE_AUDIT_LOG env var)")
	rootCmd.PersistentFlags().StringVar(&auditLogFormat, "audit-format", "json",
		"Audit log format (json or cbor)")

	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(certCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(serveCmd)
}
