package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signbridge/signbridge/internal/api/router"
	"github.com/signbridge/signbridge/internal/api/server"
	"github.com/signbridge/signbridge/internal/api/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the signing REST API.

Signing endpoints need an identity (--cert plus either --key, --key-config
or --remote-config with --remote-key-id). Without one the server is
verify-only. The remote endpoints are enabled when --remote-config is set.

Examples:
  # Verify-only server
  signbridge serve --port 8440

  # Local software key
  signbridge serve --cert signer.pem --key signer.key

  # Remote signing device
  signbridge serve --cert signer.pem \
    --remote-config device.yaml --remote-key-id key-1`,
	RunE: runServe,
}

// Command flags
var (
	servePort        int
	serveHost        string
	serveMaxConns    int
	serveTLSCert     string
	serveTLSKey      string
	serveCert        string
	serveChain       string
	serveKey         string
	serveKeyConfig   string
	serveRemoteCfg   string
	serveRemoteKeyID string
	serveCardRoot    string
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8440, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host address to bind to")
	serveCmd.Flags().IntVar(&serveMaxConns, "max-conns", 256, "Maximum concurrent connections (0 = unlimited)")
	serveCmd.Flags().StringVar(&serveTLSCert, "tls-cert", "", "TLS certificate file (enables HTTPS)")
	serveCmd.Flags().StringVar(&serveTLSKey, "tls-key", "", "TLS private key file")
	serveCmd.Flags().StringVar(&serveCert, "cert", "", "Signer certificate (PEM)")
	serveCmd.Flags().StringVar(&serveChain, "chain", "", "Additional chain certificates (PEM)")
	serveCmd.Flags().StringVar(&serveKey, "key", "", "Signer private key (PEM)")
	serveCmd.Flags().StringVar(&serveKeyConfig, "key-config", "", "Key storage configuration file (YAML)")
	serveCmd.Flags().StringVar(&serveRemoteCfg, "remote-config", "", "Remote device configuration file (YAML)")
	serveCmd.Flags().StringVar(&serveRemoteKeyID, "remote-key-id", "", "Key identifier on the remote device")
	serveCmd.Flags().StringVar(&serveCardRoot, "softcard-root", "", "Softcard root directory (overrides remote config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	routerCfg := &router.Config{
		Version:      version,
		SoftCardRoot: serveCardRoot,
		AuditLog:     auditLog,
	}

	if serveRemoteCfg != "" {
		client, remoteCfg, err := loadRemoteClient(serveRemoteCfg)
		if err != nil {
			return err
		}
		routerCfg.RemoteClient = client
		if routerCfg.SoftCardRoot == "" {
			routerCfg.SoftCardRoot = remoteCfg.SoftCardRoot
		}
	}

	if serveCert != "" {
		identity, err := buildServerIdentity(routerCfg)
		if err != nil {
			return err
		}
		routerCfg.Identity = identity
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Port = servePort
	srvCfg.Host = serveHost
	srvCfg.MaxConns = serveMaxConns
	srvCfg.TLSCert = serveTLSCert
	srvCfg.TLSKey = serveTLSKey

	return server.New(srvCfg, routerCfg).Start()
}

func buildServerIdentity(routerCfg *router.Config) (*service.SignerIdentity, error) {
	cert, chain, err := loadSignerCertificate(serveCert, serveChain)
	if err != nil {
		return nil, err
	}

	identity := &service.SignerIdentity{Certificate: cert, Chain: chain}
	switch {
	case serveKey != "" || serveKeyConfig != "":
		key, err := loadSigningKey(serveKey, serveKeyConfig)
		if err != nil {
			return nil, err
		}
		identity.Key = key
	case routerCfg.RemoteClient != nil:
		if serveRemoteKeyID == "" {
			return nil, fmt.Errorf("--remote-key-id is required when signing through a remote device")
		}
		identity.Remote = routerCfg.RemoteClient
		identity.RemoteKeyID = serveRemoteKeyID
	default:
		return nil, fmt.Errorf("a signing key is required: use --key, --key-config or --remote-config")
	}
	return identity, nil
}
