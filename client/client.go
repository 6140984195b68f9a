// Package client is the Go SDK for the vault HTTP API. Mutating calls
// are signed with a Wallet; queries are plain GETs.
package client

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"

	"StrongRoom/internal/ledger"
)

// Client talks to a vault node.
type Client struct {
	baseURL string
}

// New creates a client for the node at baseURL.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL}
}

// post seals body with the wallet and posts it to path.
func (c *Client) post(wallet *Wallet, path string, body any, result any) error {
	env, err := wallet.seal(path, body)
	if err != nil {
		return err
	}

	return httpPostJSON(c.baseURL+path, env, result)
}

// Status describes the node's current state.
type Status struct {
	VaultID          string `json:"vaultId"`
	Height           uint64 `json:"height"`
	HighestDepositID uint64 `json:"highestDepositId"`
	Signer           string `json:"signer"`
	LastEventSeq     uint64 `json:"lastEventSeq"`
}

// Status fetches the node status.
func (c *Client) Status() (Status, error) {
	var status Status
	if err := httpGet(c.baseURL+"/status", &status); err != nil {
		return Status{}, err
	}

	return status, nil
}

// AuthorizeDepositor grants deposit access to an identity. Admin only.
func (c *Client) AuthorizeDepositor(wallet *Wallet, depositor ledger.Identity) error {
	body := map[string]string{"depositor": hex.EncodeToString(depositor[:])}

	return c.post(wallet, "/depositor/authorize", body, nil)
}

// RevokeDepositor removes deposit access from an identity. Admin only.
func (c *Client) RevokeDepositor(wallet *Wallet, depositor ledger.Identity) error {
	body := map[string]string{"depositor": hex.EncodeToString(depositor[:])}

	return c.post(wallet, "/depositor/revoke", body, nil)
}

// SetSigner replaces the withdrawal-authorization signer. Admin only.
func (c *Client) SetSigner(wallet *Wallet, signer ledger.Identity) error {
	body := map[string]string{"signer": hex.EncodeToString(signer[:])}

	return c.post(wallet, "/signer", body, nil)
}

// depositResult carries the deposit identifier a deposit call returns.
type depositResult struct {
	DepositID uint64 `json:"depositId"`
}

// DepositUnique registers a unique asset deposit and returns its deposit id.
func (c *Client) DepositUnique(wallet *Wallet, collection ledger.CollectionRef, itemID uint64) (uint64, error) {
	body := map[string]any{
		"collection": hex.EncodeToString(collection[:]),
		"itemId":     itemID,
	}

	var result depositResult
	if err := c.post(wallet, "/deposit/unique", body, &result); err != nil {
		return 0, err
	}

	return result.DepositID, nil
}

// DepositFungible registers a fungible asset deposit, one unit of the
// given item per call, and returns its deposit id.
func (c *Client) DepositFungible(wallet *Wallet, collection ledger.CollectionRef, itemID uint64) (uint64, error) {
	body := map[string]any{
		"collection": hex.EncodeToString(collection[:]),
		"itemId":     itemID,
	}

	var result depositResult
	if err := c.post(wallet, "/deposit/fungible", body, &result); err != nil {
		return 0, err
	}

	return result.DepositID, nil
}

// SetFee assigns the withdrawal fee for a deposit. Admin only.
func (c *Client) SetFee(wallet *Wallet, depositID uint64, amount *uint256.Int) error {
	body := map[string]any{
		"depositId": depositID,
		"amount":    amount.Dec(),
	}

	return c.post(wallet, "/fee", body, nil)
}

// Withdraw redeems a deposit with a signer authorization. The signature
// must be a compact recoverable signature over the withdrawal fingerprint.
func (c *Client) Withdraw(wallet *Wallet, depositID uint64, signature []byte, expiryHeight uint64, payment *uint256.Int) error {
	body := map[string]any{
		"depositId":    depositID,
		"expiryHeight": expiryHeight,
		"signature":    hex.EncodeToString(signature),
		"payment":      payment.Dec(),
	}

	return c.post(wallet, "/withdraw", body, nil)
}

// EmergencyBatch drains the deposit id range [startID, endID] to recipient.
// Admin only.
func (c *Client) EmergencyBatch(wallet *Wallet, startID, endID uint64, recipient ledger.Identity) error {
	body := map[string]any{
		"startId":   startID,
		"endId":     endID,
		"recipient": hex.EncodeToString(recipient[:]),
	}

	return c.post(wallet, "/emergency/batch", body, nil)
}

// EmergencyUnique recovers one unique asset to recipient. Admin only.
func (c *Client) EmergencyUnique(wallet *Wallet, collection ledger.CollectionRef, itemID uint64, recipient ledger.Identity) error {
	body := map[string]any{
		"collection": hex.EncodeToString(collection[:]),
		"itemId":     itemID,
		"recipient":  hex.EncodeToString(recipient[:]),
	}

	return c.post(wallet, "/emergency/unique", body, nil)
}

// EmergencyFungible recovers a fungible quantity of the given item to
// recipient. Admin only.
func (c *Client) EmergencyFungible(wallet *Wallet, collection ledger.CollectionRef, itemID, quantity uint64, recipient ledger.Identity) error {
	body := map[string]any{
		"collection": hex.EncodeToString(collection[:]),
		"itemId":     itemID,
		"quantity":   quantity,
		"recipient":  hex.EncodeToString(recipient[:]),
	}

	return c.post(wallet, "/emergency/fungible", body, nil)
}

// Sweep pays the accumulated fee balance out to recipient. Admin only.
func (c *Client) Sweep(wallet *Wallet, recipient ledger.Identity) error {
	body := map[string]string{"recipient": hex.EncodeToString(recipient[:])}

	return c.post(wallet, "/funds/sweep", body, nil)
}

// DepositInfo describes one live deposit.
type DepositInfo struct {
	DepositID  uint64 `json:"depositId"`
	Collection string `json:"collection"`
	ItemID     uint64 `json:"itemId"`
	Kind       string `json:"kind"`
	Quantity   uint64 `json:"quantity"`
	Depositor  string `json:"depositor"`
	Fee        string `json:"fee"`
}

// Deposit fetches one deposit by id.
func (c *Client) Deposit(id uint64) (DepositInfo, error) {
	var info DepositInfo
	if err := httpGet(fmt.Sprintf("%s/deposit/%d", c.baseURL, id), &info); err != nil {
		return DepositInfo{}, err
	}

	return info, nil
}

// EventRecord is one entry of the vault's event history.
type EventRecord struct {
	Seq        uint64 `json:"seq"`
	Type       string `json:"type"`
	Actor      string `json:"actor"`
	DepositID  uint64 `json:"depositId"`
	Collection string `json:"collection,omitempty"`
	ItemID     uint64 `json:"itemId,omitempty"`
}

// Events fetches up to limit events starting at fromSeq.
func (c *Client) Events(fromSeq uint64, limit int) ([]EventRecord, error) {
	var result struct {
		Events []EventRecord `json:"events"`
	}

	url := fmt.Sprintf("%s/events?from=%d&limit=%d", c.baseURL, fromSeq, limit)
	if err := httpGet(url, &result); err != nil {
		return nil, err
	}

	return result.Events, nil
}

// Snapshot downloads a full state snapshot.
func (c *Client) Snapshot() ([]byte, error) {
	return httpGetBytes(c.baseURL + "/snapshot")
}
