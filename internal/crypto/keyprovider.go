// This file defines the KeyProvider interface for unified key loading.
package crypto

import "fmt"

// KeyProviderType identifies the key storage backend.
type KeyProviderType string

const (
	// KeyProviderTypeSoftware uses PEM key files on disk.
	KeyProviderTypeSoftware KeyProviderType = "software"

	// KeyProviderTypePKCS11 uses keys held in a PKCS#11 token.
	KeyProviderTypePKCS11 KeyProviderType = "pkcs11"
)

// KeyStorageConfig describes where a signing key lives.
type KeyStorageConfig struct {
	// Type specifies the storage backend ("software" or "pkcs11").
	Type KeyProviderType `json:"type" yaml:"type"`

	// Software key storage
	KeyPath string `json:"key_path,omitempty" yaml:"key_path,omitempty"`

	// PKCS#11 key storage
	PKCS11Lib      string `json:"pkcs11_lib,omitempty" yaml:"pkcs11_lib,omitempty"`
	PKCS11Token    string `json:"pkcs11_token,omitempty" yaml:"pkcs11_token,omitempty"`
	PKCS11Pin      string `json:"-" yaml:"-"` // Never serialized
	PKCS11KeyLabel string `json:"pkcs11_key_label,omitempty" yaml:"pkcs11_key_label,omitempty"`
	PKCS11KeyID    string `json:"pkcs11_key_id,omitempty" yaml:"pkcs11_key_id,omitempty"`
	PKCS11Slot     *uint  `json:"pkcs11_slot,omitempty" yaml:"pkcs11_slot,omitempty"`
}

// KeyProvider loads signing keys from a storage backend.
type KeyProvider interface {
	// Load loads an existing key and returns a Signer.
	Load(cfg KeyStorageConfig) (Signer, error)
}

// NewKeyProvider creates a KeyProvider for the configured storage type.
// An empty type defaults to software keys.
func NewKeyProvider(cfg KeyStorageConfig) KeyProvider {
	switch cfg.Type {
	case KeyProviderTypePKCS11:
		return &PKCS11KeyProvider{}
	default:
		return &SoftwareKeyProvider{}
	}
}

// SoftwareKeyProvider implements KeyProvider for PEM key files.
type SoftwareKeyProvider struct{}

var _ KeyProvider = (*SoftwareKeyProvider)(nil)

// Load reads the key file configured in cfg.
func (p *SoftwareKeyProvider) Load(cfg KeyStorageConfig) (Signer, error) {
	if cfg.Type != KeyProviderTypeSoftware && cfg.Type != "" {
		return nil, fmt.Errorf("SoftwareKeyProvider only supports software keys, got: %s", cfg.Type)
	}
	if cfg.KeyPath == "" {
		return nil, fmt.Errorf("key_path is required for software key storage")
	}
	return LoadSoftwareSigner(cfg.KeyPath)
}

// PKCS11KeyProvider implements KeyProvider for PKCS#11 token keys.
type PKCS11KeyProvider struct{}

var _ KeyProvider = (*PKCS11KeyProvider)(nil)

// Load opens the token configured in cfg and locates the key.
func (p *PKCS11KeyProvider) Load(cfg KeyStorageConfig) (Signer, error) {
	if cfg.Type != KeyProviderTypePKCS11 {
		return nil, fmt.Errorf("PKCS11KeyProvider only supports pkcs11 keys, got: %s", cfg.Type)
	}
	if cfg.PKCS11Lib == "" {
		return nil, fmt.Errorf("pkcs11_lib is required for PKCS#11 key storage")
	}
	if cfg.PKCS11KeyLabel == "" && cfg.PKCS11KeyID == "" {
		return nil, fmt.Errorf("at least one of pkcs11_key_label or pkcs11_key_id is required")
	}

	return NewPKCS11Signer(PKCS11Config{
		ModulePath: cfg.PKCS11Lib,
		TokenLabel: cfg.PKCS11Token,
		PIN:        cfg.PKCS11Pin,
		KeyLabel:   cfg.PKCS11KeyLabel,
		KeyID:      cfg.PKCS11KeyID,
		SlotID:     cfg.PKCS11Slot,
	})
}
