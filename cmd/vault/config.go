package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"StrongRoom/internal/ledger"
)

// Config holds the vault node configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// FeedAddress is the QUIC event feed listen address. Empty disables the feed.
	FeedAddress string

	// KeyPath is the path to the Ed25519 service key file.
	KeyPath string

	// PrivateKey is the node's Ed25519 service key.
	PrivateKey ed25519.PrivateKey

	// AdminHex is the vault administrator identity in hex. Empty means
	// the service key's own identity administers the vault.
	AdminHex string

	// Admin is the resolved administrator identity.
	Admin ledger.Identity

	// AssetMoverURL is the base URL of the asset custody bridge.
	AssetMoverURL string

	// FundsMoverURL is the base URL of the fee payment bridge.
	FundsMoverURL string

	// RestorePath is a snapshot file to load into an empty data directory.
	RestorePath string

	// Verbose enables debug logging.
	Verbose bool
}

// parseFlags parses command-line flags into Config.
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	flag.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	flag.StringVar(&cfg.FeedAddress, "feed", ":9000", "QUIC event feed address (empty to disable)")
	flag.StringVar(&cfg.KeyPath, "key", "", "Ed25519 service key path (generates new if missing)")
	flag.StringVar(&cfg.AdminHex, "admin", "", "Administrator identity, 32 hex bytes (defaults to the service key identity)")
	flag.StringVar(&cfg.AssetMoverURL, "asset-mover", "http://localhost:8090", "Asset custody bridge base URL")
	flag.StringVar(&cfg.FundsMoverURL, "funds-mover", "http://localhost:8091", "Fee payment bridge base URL")
	flag.StringVar(&cfg.RestorePath, "restore", "", "Snapshot file to restore into an empty data directory")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	return cfg
}

// resolveAdmin fills cfg.Admin from the -admin flag or the service key.
func (cfg *Config) resolveAdmin() error {
	if cfg.AdminHex == "" {
		public := cfg.PrivateKey.Public().(ed25519.PublicKey)
		cfg.Admin = ledger.IdentityFromKey(public)
		return nil
	}

	raw, err := hex.DecodeString(cfg.AdminHex)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("invalid admin identity: want 32 hex bytes")
	}

	copy(cfg.Admin[:], raw)

	return nil
}

// loadOrGenerateKey loads the service key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
