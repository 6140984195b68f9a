package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"StrongRoom/internal/logger"
)

func main() {
	cfg := parseFlags()

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger.Init(level)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(cfg *Config) error {
	var err error
	cfg.PrivateKey, err = loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	if err := cfg.resolveAdmin(); err != nil {
		return err
	}

	node, err := NewNode(cfg)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(cfg, node)

	return node.Run()
}

// printStartupInfo displays node configuration at startup.
func printStartupInfo(cfg *Config, node *Node) {
	pubKey := cfg.PrivateKey.Public().(ed25519.PublicKey)
	vaultID := node.vault.VaultID()

	logger.Info("starting vault node",
		"pubkey", hex.EncodeToString(pubKey),
		"admin", cfg.Admin.Short(),
		"vault", hex.EncodeToString(vaultID[:]),
		"http", cfg.HTTPAddress,
		"feed", cfg.FeedAddress,
		"data", cfg.DataPath,
	)
}
