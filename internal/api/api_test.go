package api

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/holiman/uint256"

	"StrongRoom/internal/eventlog"
	"StrongRoom/internal/ledger"
	"StrongRoom/internal/storage"
)

// noopAssets accepts every transfer.
type noopAssets struct{}

func (noopAssets) Pull(ledger.AssetReference, ledger.Identity) error { return nil }
func (noopAssets) Push(ledger.AssetReference, ledger.Identity) error { return nil }

// noopFunds accepts every payment.
type noopFunds struct{}

func (noopFunds) Collect(ledger.Identity, *uint256.Int) error { return nil }
func (noopFunds) Payout(ledger.Identity, *uint256.Int) error  { return nil }

// stubRecovery returns a fixed signer identity.
type stubRecovery struct {
	signer ledger.Identity
}

func (s stubRecovery) RecoverSigner([32]byte, []byte) (ledger.Identity, error) {
	return s.signer, nil
}

// testWallet is an Ed25519 keypair for signing request envelopes.
type testWallet struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

func newTestWallet(t *testing.T) *testWallet {
	t.Helper()

	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	return &testWallet{public: public, private: private}
}

func (w *testWallet) identity() ledger.Identity {
	return ledger.IdentityFromKey(w.public)
}

// seal wraps a body in a signed envelope for the given path.
func (w *testWallet) seal(t *testing.T, path string, body any) []byte {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	digest := RequestDigest(path, raw)
	sig := ed25519.Sign(w.private, digest[:])

	env, err := json.Marshal(envelope{
		Body:      raw,
		Sender:    hex.EncodeToString(w.public),
		Signature: hex.EncodeToString(sig),
	})
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	return env
}

// testServer bundles a server over temporary storage with its wallets.
type testServer struct {
	server    *Server
	admin     *testWallet
	depositor *testWallet
	signer    ledger.Identity
}

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	db, err := storage.Open(filepath.Join(dir, "db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to open storage: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(dir)
	}

	admin := newTestWallet(t)
	depositor := newTestWallet(t)
	signer := ledger.Identity{0x09}

	seq, err := ledger.NewSequence(db)
	if err != nil {
		cleanup()
		t.Fatalf("NewSequence failed: %v", err)
	}

	events, err := eventlog.Open(db)
	if err != nil {
		cleanup()
		t.Fatalf("eventlog.Open failed: %v", err)
	}

	vault, err := ledger.New(db, admin.identity(), ledger.External{
		Assets:   noopAssets{},
		Funds:    noopFunds{},
		Recovery: stubRecovery{signer: signer},
		Heights:  seq,
		Events:   events,
	})
	if err != nil {
		cleanup()
		t.Fatalf("failed to create ledger: %v", err)
	}

	if err := vault.AuthorizeDepositor(admin.identity(), depositor.identity()); err != nil {
		cleanup()
		t.Fatalf("AuthorizeDepositor failed: %v", err)
	}

	if err := vault.SetAuthorizedSigner(admin.identity(), signer); err != nil {
		cleanup()
		t.Fatalf("SetAuthorizedSigner failed: %v", err)
	}

	ts := &testServer{
		server:    New("", vault, events, seq),
		admin:     admin,
		depositor: depositor,
		signer:    signer,
	}

	return ts, cleanup
}

// postSigned drives a signed handler like the mux would.
func postSigned(t *testing.T, ts *testServer, path string, h opHandler, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()

	ts.server.signed(h)(rec, req)

	return rec
}

func TestRequestDigestBindsPath(t *testing.T) {
	body := []byte(`{"x":1}`)

	a := RequestDigest("/deposit/unique", body)
	b := RequestDigest("/deposit/fungible", body)

	if a == b {
		t.Error("different paths produced the same digest")
	}

	if RequestDigest("/withdraw", body) != RequestDigest("/withdraw", body) {
		t.Error("same inputs produced different digests")
	}
}

func TestValidateEnvelope(t *testing.T) {
	wallet := newTestWallet(t)
	body := map[string]uint64{"depositId": 1}

	env := wallet.seal(t, "/withdraw", body)

	caller, raw, err := validateEnvelope("/withdraw", env)
	if err != nil {
		t.Fatalf("validateEnvelope failed: %v", err)
	}

	if caller != wallet.identity() {
		t.Errorf("caller = %s, want wallet identity", caller.Short())
	}

	var decoded map[string]uint64
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded["depositId"] != 1 {
		t.Errorf("body not preserved: %s", raw)
	}
}

func TestValidateEnvelopeRejectsWrongPath(t *testing.T) {
	wallet := newTestWallet(t)
	env := wallet.seal(t, "/withdraw", map[string]uint64{"depositId": 1})

	if _, _, err := validateEnvelope("/emergency/batch", env); err == nil {
		t.Error("envelope accepted for a path it never signed")
	}
}

func TestValidateEnvelopeRejectsTamperedBody(t *testing.T) {
	wallet := newTestWallet(t)
	env := wallet.seal(t, "/withdraw", map[string]uint64{"depositId": 1})

	tampered := bytes.Replace(env, []byte(`"depositId":1`), []byte(`"depositId":2`), 1)

	if _, _, err := validateEnvelope("/withdraw", tampered); err == nil {
		t.Error("tampered envelope accepted")
	}
}

func TestValidateEnvelopeRejectsBadFields(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "garbage"},
		{"short sender", `{"body":{},"sender":"abcd","signature":""}`},
		{"short signature", `{"body":{},"sender":"` + hex.EncodeToString(make([]byte, 32)) + `","signature":"abcd"}`},
	}

	for _, c := range cases {
		if _, _, err := validateEnvelope("/withdraw", []byte(c.data)); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestSignedDepositFlow(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	collection := hex.EncodeToString(bytes.Repeat([]byte{0xaa}, 32))
	env := ts.depositor.seal(t, "/deposit/unique", map[string]any{
		"collection": collection,
		"itemId":     7,
	})

	rec := postSigned(t, ts, "/deposit/unique", ts.server.handleDepositUnique, env)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result struct {
		DepositID uint64 `json:"depositId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result.DepositID != 1 {
		t.Errorf("depositId = %d, want 1", result.DepositID)
	}

	// Each accepted operation advances the height.
	if got := ts.server.seq.Height(); got != 1 {
		t.Errorf("height = %d, want 1", got)
	}
}

func TestSignedRejectsUnsignedRequest(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	rec := postSigned(t, ts, "/deposit/unique", ts.server.handleDepositUnique, []byte(`{"collection":"aa"}`))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSignedMapsLedgerErrors(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	stranger := newTestWallet(t)

	collection := hex.EncodeToString(bytes.Repeat([]byte{0xaa}, 32))
	env := stranger.seal(t, "/deposit/unique", map[string]any{
		"collection": collection,
		"itemId":     7,
	})

	rec := postSigned(t, ts, "/deposit/unique", ts.server.handleDepositUnique, env)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for unauthorized depositor", rec.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ledger.ErrUnauthorized, http.StatusForbidden},
		{ledger.ErrNoSuchDeposit, http.StatusNotFound},
		{ledger.ErrSignatureUsed, http.StatusConflict},
		{ledger.ErrInsufficientFee, http.StatusPaymentRequired},
		{ledger.ErrExpired, http.StatusBadRequest},
		{ledger.ErrInvalidRange, http.StatusBadRequest},
		{ledger.ErrMoverFailure, http.StatusBadGateway},
	}

	for _, c := range cases {
		if got := errorStatus(c.err); got != c.want {
			t.Errorf("errorStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestHandleGetDeposit(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	collection := hex.EncodeToString(bytes.Repeat([]byte{0xaa}, 32))
	env := ts.depositor.seal(t, "/deposit/unique", map[string]any{
		"collection": collection,
		"itemId":     7,
	})

	if rec := postSigned(t, ts, "/deposit/unique", ts.server.handleDepositUnique, env); rec.Code != http.StatusOK {
		t.Fatalf("deposit failed: %s", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/deposit/1", nil)
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()

	ts.server.handleGetDeposit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var info struct {
		Collection string `json:"collection"`
		ItemID     uint64 `json:"itemId"`
		Kind       string `json:"kind"`
		Fee        string `json:"fee"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if info.Collection != collection || info.ItemID != 7 || info.Kind != "unique" || info.Fee != "0" {
		t.Errorf("response = %+v", info)
	}

	// Unknown id is a 404.
	req = httptest.NewRequest(http.MethodGet, "/deposit/99", nil)
	req.SetPathValue("id", strconv.Itoa(99))
	rec = httptest.NewRecorder()

	ts.server.handleGetDeposit(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d for unknown id, want 404", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()

	ts.server.handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var status struct {
		VaultID string `json:"vaultId"`
		Signer  string `json:"signer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(status.VaultID) != 32 {
		t.Errorf("vaultId = %q, want 16 hex bytes", status.VaultID)
	}

	if status.Signer != hex.EncodeToString(ts.signer[:]) {
		t.Errorf("signer = %q", status.Signer)
	}
}

func TestHandleEventsValidation(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	cases := []string{
		"/events?from=abc",
		"/events?limit=0",
		"/events?limit=100000",
	}

	for _, url := range cases {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()

		ts.server.handleEvents(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, rec.Code)
		}
	}
}

func TestHandleEventsListsDeposits(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	collection := hex.EncodeToString(bytes.Repeat([]byte{0xaa}, 32))
	env := ts.depositor.seal(t, "/deposit/unique", map[string]any{
		"collection": collection,
		"itemId":     7,
	})

	if rec := postSigned(t, ts, "/deposit/unique", ts.server.handleDepositUnique, env); rec.Code != http.StatusOK {
		t.Fatalf("deposit failed: %s", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()

	ts.server.handleEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var result struct {
		Events []struct {
			Seq  uint64 `json:"seq"`
			Type string `json:"type"`
		} `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(result.Events) != 1 || result.Events[0].Type != "deposit" {
		t.Errorf("events = %+v, want one deposit event", result.Events)
	}
}
