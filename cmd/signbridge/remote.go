package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signbridge/signbridge/internal/audit"
	"github.com/signbridge/signbridge/internal/remote"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Remote signing device operations",
	Long: `Operations against a remote signing device.

The device is reached over TCP (host and port) or a local stream socket,
as configured in a YAML file:

  host: hsm.example.com
  port: 9100
  # or: socket_path: /var/run/signer.sock
  softcard_root: /var/lib/softcards
  card_name: operator-card
  passphrase_env: SIGNER_PASSPHRASE
  connect_timeout: 10s
  command_timeout: 30s

Examples:
  signbridge remote ping --config device.yaml
  signbridge remote certificates --config device.yaml
  signbridge remote certificate key-1 --config device.yaml
  signbridge remote softcards --config device.yaml`,
}

var remotePingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check device liveness",
	RunE:  runRemotePing,
}

var remoteCertificatesCmd = &cobra.Command{
	Use:   "certificates",
	Short: "List the device's signing identities",
	RunE:  runRemoteCertificates,
}

var remoteCertificateCmd = &cobra.Command{
	Use:   "certificate <key-id>",
	Short: "Show one signing identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoteCertificate,
}

var remoteSoftCardsCmd = &cobra.Command{
	Use:   "softcards",
	Short: "Discover filesystem-backed cards",
	Long: `Scan the configured softcard root for card directories.

A subdirectory is a valid card when it holds at least one certificate
file. The scan reads the filesystem fresh on every call.`,
	RunE: runRemoteSoftCards,
}

// Command flags
var remoteConfigPath string

func init() {
	remoteCmd.PersistentFlags().StringVar(&remoteConfigPath, "config", "", "Device configuration file (YAML, required)")
	_ = remoteCmd.MarkPersistentFlagRequired("config")

	remoteCmd.AddCommand(remotePingCmd)
	remoteCmd.AddCommand(remoteCertificatesCmd)
	remoteCmd.AddCommand(remoteCertificateCmd)
	remoteCmd.AddCommand(remoteSoftCardsCmd)
}

func runRemotePing(cmd *cobra.Command, args []string) error {
	client, cfg, err := loadRemoteClient(remoteConfigPath)
	if err != nil {
		return err
	}

	if err := client.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("device is not reachable: %w", err)
	}

	target := cfg.SocketPath
	if target == "" {
		target = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	cmd.Printf("Device %s is reachable\n", target)
	return nil
}

func runRemoteCertificates(cmd *cobra.Command, args []string) error {
	client, _, err := loadRemoteClient(remoteConfigPath)
	if err != nil {
		return err
	}

	certs, err := client.ListCertificates(cmd.Context())
	if err != nil {
		return err
	}

	if len(certs) == 0 {
		cmd.Println("No signing identities found")
		return nil
	}
	for _, c := range certs {
		cmd.Printf("%s\n", c.ID)
		if c.Subject != "" {
			cmd.Printf("  Subject: %s\n", c.Subject)
		}
		if c.Issuer != "" {
			cmd.Printf("  Issuer:  %s\n", c.Issuer)
		}
		if c.ValidTo != "" {
			cmd.Printf("  Expires: %s\n", c.ValidTo)
		}
	}
	return nil
}

func runRemoteCertificate(cmd *cobra.Command, args []string) error {
	client, _, err := loadRemoteClient(remoteConfigPath)
	if err != nil {
		return err
	}

	info, err := client.GetCertificateDetails(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cmd.Printf("ID:      %s\n", info.ID)
	cmd.Printf("Subject: %s\n", info.Subject)
	cmd.Printf("Issuer:  %s\n", info.Issuer)
	if info.SerialNumber != "" {
		cmd.Printf("Serial:  %s\n", info.SerialNumber)
	}
	if info.ValidFrom != "" {
		cmd.Printf("Valid:   %s to %s\n", info.ValidFrom, info.ValidTo)
	}
	if info.PEM != "" {
		cmd.Println()
		cmd.Print(info.PEM)
	}
	return nil
}

func runRemoteSoftCards(cmd *cobra.Command, args []string) error {
	cfg, err := remote.LoadConfig(remoteConfigPath)
	if err != nil {
		return err
	}
	if cfg.SoftCardRoot == "" {
		return fmt.Errorf("softcard_root is not configured")
	}

	cards, err := remote.ListSoftCards(cfg.SoftCardRoot)

	result := audit.ResultSuccess
	reason := ""
	if err != nil {
		result = audit.ResultFailure
		reason = err.Error()
	}
	event := audit.NewEvent(audit.EventSoftCardList, result).
		WithObject(audit.Object{Type: "softcard", Path: cfg.SoftCardRoot}).
		WithContext(audit.Context{Reason: reason})
	if auditErr := auditLog.Write(event); auditErr != nil {
		return fmt.Errorf("audit write failed: %w", auditErr)
	}
	if err != nil {
		return err
	}

	if len(cards) == 0 {
		cmd.Println("No softcards found")
		return nil
	}
	for _, card := range cards {
		status := "invalid"
		if card.Valid {
			status = "valid"
		}
		cmd.Printf("%s (%s)\n", card.Name, status)
		for _, file := range card.Certificates {
			cmd.Printf("  certificate: %s\n", file)
		}
		if card.Subject != "" {
			cmd.Printf("  Subject: %s\n", card.Subject)
		}
		if card.Issuer != "" {
			cmd.Printf("  Issuer:  %s\n", card.Issuer)
		}
	}
	return nil
}
