// Command authorize produces withdrawal authorizations. It holds the
// vault's secp256k1 signer key and signs withdrawal fingerprints offline;
// the resulting signature goes into a withdraw request.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"StrongRoom/internal/authsig"
	"StrongRoom/internal/ledger"
	"StrongRoom/internal/logger"
)

func main() {
	logger.Init(slog.LevelInfo)

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	keyPath := flag.String("key", "signer.key", "secp256k1 signer key path (generates new if missing)")
	withdrawerHex := flag.String("withdrawer", "", "Withdrawer identity, 32 hex bytes")
	depositID := flag.Uint64("deposit", 0, "Deposit id to authorize")
	expiry := flag.Uint64("expiry", 0, "Expiry height of the authorization")
	vaultHex := flag.String("vault", "", "Vault id, 16 hex bytes (from /status)")
	flag.Parse()

	signer, err := authsig.LoadSigner(*keyPath)
	if err != nil {
		return fmt.Errorf("load signer key:\n%w", err)
	}

	identity := signer.Identity()
	fmt.Printf("signer: %s\n", hex.EncodeToString(identity[:]))

	// With no fingerprint arguments this is a key inspection run.
	if *withdrawerHex == "" {
		return nil
	}

	var withdrawer ledger.Identity
	raw, err := hex.DecodeString(*withdrawerHex)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("invalid withdrawer: want 32 hex bytes")
	}
	copy(withdrawer[:], raw)

	var vaultID [16]byte
	raw, err = hex.DecodeString(*vaultHex)
	if err != nil || len(raw) != 16 {
		return fmt.Errorf("invalid vault id: want 16 hex bytes")
	}
	copy(vaultID[:], raw)

	fingerprint := ledger.Fingerprint(withdrawer, *depositID, *expiry, vaultID)

	sig, err := signer.Authorize(fingerprint)
	if err != nil {
		return fmt.Errorf("sign fingerprint:\n%w", err)
	}

	fmt.Printf("signature: %s\n", hex.EncodeToString(sig))

	return nil
}
