package api

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"

	"StrongRoom/internal/ledger"
)

const (
	// senderSize is the expected size of an Ed25519 public key.
	senderSize = 32

	// signatureSize is the expected size of an Ed25519 signature.
	signatureSize = 64
)

// envelope is the signed wrapper around every mutating request.
// The signature covers blake3(path | body), so an envelope replayed
// against a different operation fails verification.
type envelope struct {
	Body      json.RawMessage `json:"body"`
	Sender    string          `json:"sender"`
	Signature string          `json:"signature"`
}

// validateEnvelope checks the envelope's structure and signature and
// returns the caller identity and the operation body.
func validateEnvelope(path string, data []byte) (ledger.Identity, json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ledger.Identity{}, nil, fmt.Errorf("malformed envelope: %v", err)
	}

	sender, err := hex.DecodeString(env.Sender)
	if err != nil || len(sender) != senderSize {
		return ledger.Identity{}, nil, fmt.Errorf("invalid sender: want %d hex bytes", senderSize)
	}

	sig, err := hex.DecodeString(env.Signature)
	if err != nil || len(sig) != signatureSize {
		return ledger.Identity{}, nil, fmt.Errorf("invalid signature: want %d hex bytes", signatureSize)
	}

	digest := RequestDigest(path, env.Body)

	if !ed25519.Verify(ed25519.PublicKey(sender), digest[:], sig) {
		return ledger.Identity{}, nil, fmt.Errorf("signature verification failed")
	}

	return ledger.IdentityFromKey(sender), env.Body, nil
}

// RequestDigest computes the digest an envelope signature covers.
// Shared with the client SDK.
func RequestDigest(path string, body []byte) [32]byte {
	hasher := blake3.New()
	hasher.Write([]byte(path))
	hasher.Write([]byte{'|'})
	hasher.Write(body)

	var digest [32]byte
	hasher.Sum(digest[:0])

	return digest
}

// parseIdentity decodes a 32-byte hex identity field.
func parseIdentity(field, value string) (ledger.Identity, error) {
	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != 32 {
		return ledger.Identity{}, fmt.Errorf("invalid %s: want 32 hex bytes", field)
	}

	var id ledger.Identity
	copy(id[:], raw)

	return id, nil
}

// parseCollection decodes a 32-byte hex collection reference.
func parseCollection(value string) (ledger.CollectionRef, error) {
	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != 32 {
		return ledger.CollectionRef{}, fmt.Errorf("invalid collection: want 32 hex bytes")
	}

	var c ledger.CollectionRef
	copy(c[:], raw)

	return c, nil
}
