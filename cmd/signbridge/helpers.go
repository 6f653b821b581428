package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/signbridge/signbridge/internal/certchain"
	sbcrypto "github.com/signbridge/signbridge/internal/crypto"
	"github.com/signbridge/signbridge/internal/remote"
)

// keyConfigFile is the on-disk shape of a PKCS#11 key configuration.
// The PIN itself is never stored in the file; pin_env names the
// environment variable that holds it.
type keyConfigFile struct {
	Storage sbcrypto.KeyStorageConfig `yaml:"storage"`
	PinEnv  string                    `yaml:"pin_env"`
}

// loadSignerCertificate reads the signer certificate, and optionally a
// chain file whose certificates are appended after it.
func loadSignerCertificate(certPath, chainPath string) (*certchain.Certificate, certchain.Chain, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read certificate: %w", err)
	}
	certs, err := certchain.ParseChain(certPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	signer := certs.Signer()
	chain := certs[1:]

	if chainPath != "" {
		chainPEM, err := os.ReadFile(chainPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read chain: %w", err)
		}
		extra, err := certchain.ParseChain(chainPEM)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse chain: %w", err)
		}
		chain = append(chain, extra...)
	}
	return signer, chain, nil
}

// loadSigningKey loads a private key for signing (PKCS#11 or software).
func loadSigningKey(keyPath, keyConfigPath string) (sbcrypto.Signer, error) {
	if keyConfigPath != "" {
		data, err := os.ReadFile(keyConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read key config: %w", err)
		}
		var cfg keyConfigFile
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse key config: %w", err)
		}
		if cfg.PinEnv != "" {
			pin := os.Getenv(cfg.PinEnv)
			if pin == "" {
				return nil, fmt.Errorf("environment variable %s is not set or empty", cfg.PinEnv)
			}
			cfg.Storage.PKCS11Pin = pin
		}
		provider := sbcrypto.NewKeyProvider(cfg.Storage)
		return provider.Load(cfg.Storage)
	}

	if keyPath == "" {
		return nil, fmt.Errorf("--key required for software mode (or use --key-config for PKCS#11)")
	}
	return sbcrypto.LoadSoftwareSigner(keyPath)
}

// loadRemoteClient builds a client from a device configuration file.
func loadRemoteClient(configPath string) (*remote.Client, *remote.Config, error) {
	cfg, err := remote.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	client, err := remote.NewClient(*cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// writeOutput writes data to path, or stdout when path is "-" or empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
