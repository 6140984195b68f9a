// Package mover bridges the ledger's mover capabilities to external
// asset-transfer and payment services over HTTP. Each call maps to one
// POST; a non-2xx status or transport error reports as failure and the
// ledger aborts the enclosing operation.
package mover

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/holiman/uint256"

	"StrongRoom/internal/ledger"
)

// requestTimeout bounds each bridge call.
const requestTimeout = 10 * time.Second

// AssetBridge implements ledger.AssetMover against an HTTP endpoint.
type AssetBridge struct {
	baseURL string
	client  *http.Client
}

// NewAssetBridge creates a bridge against the given base URL.
func NewAssetBridge(baseURL string) *AssetBridge {
	return &AssetBridge{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// assetRequest is the wire shape of a transfer instruction.
type assetRequest struct {
	Collection string `json:"collection"`
	ItemID     uint64 `json:"itemId"`
	Kind       string `json:"kind"`
	Quantity   uint64 `json:"quantity"`
	Party      string `json:"party"`
}

// Pull transfers the asset from the owner into vault custody.
func (b *AssetBridge) Pull(asset ledger.AssetReference, from ledger.Identity) error {
	return b.post("/pull", assetRequest{
		Collection: hex.EncodeToString(asset.Collection[:]),
		ItemID:     asset.ItemID,
		Kind:       asset.Kind.String(),
		Quantity:   asset.Quantity,
		Party:      hex.EncodeToString(from[:]),
	})
}

// Push transfers the asset out of vault custody to the recipient.
func (b *AssetBridge) Push(asset ledger.AssetReference, to ledger.Identity) error {
	return b.post("/push", assetRequest{
		Collection: hex.EncodeToString(asset.Collection[:]),
		ItemID:     asset.ItemID,
		Kind:       asset.Kind.String(),
		Quantity:   asset.Quantity,
		Party:      hex.EncodeToString(to[:]),
	})
}

// post sends one instruction and reports failure on any non-2xx status.
func (b *AssetBridge) post(path string, body any) error {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body:\n%w", err)
	}

	resp, err := b.client.Post(b.baseURL+path, "application/json", bytes.NewReader(jsonBytes))
	if err != nil {
		return fmt.Errorf("POST %s:\n%w", path, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}

	return nil
}

// FundsBridge implements ledger.FundsMover against an HTTP endpoint.
type FundsBridge struct {
	bridge *AssetBridge
}

// NewFundsBridge creates a bridge against the given base URL.
func NewFundsBridge(baseURL string) *FundsBridge {
	return &FundsBridge{bridge: NewAssetBridge(baseURL)}
}

// fundsRequest is the wire shape of a payment instruction.
type fundsRequest struct {
	Party  string `json:"party"`
	Amount string `json:"amount"`
}

// Collect pulls a payment from the payer.
func (b *FundsBridge) Collect(from ledger.Identity, amount *uint256.Int) error {
	return b.bridge.post("/collect", fundsRequest{
		Party:  hex.EncodeToString(from[:]),
		Amount: amount.Dec(),
	})
}

// Payout pays out to the recipient.
func (b *FundsBridge) Payout(to ledger.Identity, amount *uint256.Int) error {
	return b.bridge.post("/payout", fundsRequest{
		Party:  hex.EncodeToString(to[:]),
		Amount: amount.Dec(),
	})
}
