// Package api exposes the vault ledger over HTTP. Mutating operations
// arrive as signed envelopes; queries are plain GETs.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	"StrongRoom/internal/eventlog"
	"StrongRoom/internal/ledger"
	"StrongRoom/internal/logger"
)

const (
	// maxRequestSize is the maximum request body size in bytes.
	maxRequestSize = 1 << 20 // 1 MB

	// maxEventPage is the largest event page a single query returns.
	maxEventPage = 1000
)

// Server is the HTTP API server.
type Server struct {
	addr   string
	vault  *ledger.Ledger
	events *eventlog.Log
	seq    *ledger.Sequence
	server *http.Server
}

// New creates a new HTTP API server.
func New(addr string, vault *ledger.Ledger, events *eventlog.Log, seq *ledger.Sequence) *Server {
	return &Server{
		addr:   addr,
		vault:  vault,
		events: events,
		seq:    seq,
	}
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /depositor/authorize", s.signed(s.handleAuthorizeDepositor))
	mux.HandleFunc("POST /depositor/revoke", s.signed(s.handleRevokeDepositor))
	mux.HandleFunc("POST /signer", s.signed(s.handleSetSigner))
	mux.HandleFunc("POST /deposit/unique", s.signed(s.handleDepositUnique))
	mux.HandleFunc("POST /deposit/fungible", s.signed(s.handleDepositFungible))
	mux.HandleFunc("POST /fee", s.signed(s.handleSetFee))
	mux.HandleFunc("POST /withdraw", s.signed(s.handleWithdraw))
	mux.HandleFunc("POST /emergency/batch", s.signed(s.handleEmergencyBatch))
	mux.HandleFunc("POST /emergency/unique", s.signed(s.handleEmergencyUnique))
	mux.HandleFunc("POST /emergency/fungible", s.signed(s.handleEmergencyFungible))
	mux.HandleFunc("POST /funds/sweep", s.signed(s.handleSweep))
	mux.HandleFunc("POST /asset-received", s.handleAssetReceived)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /deposit/{id}", s.handleGetDeposit)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// opHandler handles one validated operation for an authenticated caller.
type opHandler func(caller ledger.Identity, body json.RawMessage) (any, error)

// signed wraps an operation handler with envelope validation and the
// per-operation height advance.
func (s *Server) signed(h opHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		caller, body, err := validateEnvelope(r.URL.Path, data)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if _, err := s.seq.Advance(); err != nil {
			writeError(w, http.StatusInternalServerError, "advance height failed")
			return
		}

		result, err := h(caller, body)
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}

		if result == nil {
			result = map[string]string{"status": "ok"}
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// errorStatus maps ledger failure kinds to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNoSuchDeposit):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrSignatureUsed):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFee):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrExpired),
		errors.Is(err, ledger.ErrInvalidSignature),
		errors.Is(err, ledger.ErrInvalidSigner),
		errors.Is(err, ledger.ErrInvalidRecipient),
		errors.Is(err, ledger.ErrInvalidRange),
		errors.Is(err, ledger.ErrInvalidAsset):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrMoverFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// identityRequest carries a single identity argument.
type identityRequest struct {
	Depositor string `json:"depositor,omitempty"`
	Signer    string `json:"signer,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

func (s *Server) handleAuthorizeDepositor(caller ledger.Identity, body json.RawMessage) (any, error) {
	var req identityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("malformed body: %v", err)
	}

	depositor, err := parseIdentity("depositor", req.Depositor)
	if err != nil {
		return nil, err
	}

	return nil, s.vault.AuthorizeDepositor(caller, depositor)
}

func (s *Server) handleRevokeDepositor(caller ledger.Identity, body json.RawMessage) (any, error) {
	var req identityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("malformed body: %v", err)
	}

	depositor, err := parseIdentity("depositor", req.Depositor)
	if err != nil {
		return nil, err
	}

	return nil, s.vault.RevokeDepositor(caller, depositor)
}

func (s *Server) handleSetSigner(caller ledger.Identity, body json.RawMessage) (any, error) {
	var req identityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("malformed body: %v", err)
	}

	signer, err := parseIdentity("signer", req.Signer)
	if err != nil {
		return nil, err
	}

	return nil, s.vault.SetAuthorizedSigner(caller, signer)
}

// depositRequest carries the asset coordinates of a deposit.
type depositRequest struct {
	Collection string `json:"collection"`
	ItemID     uint64 `json:"itemId"`
}

func (s *Server) handleDepositUnique(caller ledger.Identity, body json.RawMessage) (any, error) {
	return s.handleDeposit(caller, body, s.vault.DepositUnique)
}

func (s *Server) handleDepositFungible(caller ledger.Identity, body json.RawMessage) (any, error) {
	return s.handleDeposit(caller, body, s.vault.DepositFungible)
}

func (s *Server) handleDeposit(caller ledger.Identity, body json.RawMessage, op func(ledger.Identity, ledger.CollectionRef, uint64) (uint64, error)) (any, error) {
	var req depositRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("malformed body: %v", err)
	}

	collection, err := parseCollection(req.Collection)
	if err != nil {
		return nil, err
	}

	id, err := op(caller, collection, req.ItemID)
	if err != nil {
		return nil, err
	}

	return map[string]uint64{"depositId": id}, nil
}

// feeRequest carries a fee assignment.
type feeRequest struct {
	DepositID uint64 `json:"depositId"`
	Amount    string `json:"amount"`
}

func (s *Server) handleSetFee(caller ledger.Identity, body json.RawMessage) (any, error) {
	var req feeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("malformed body: %v", err)
	}

	amount, err := uint256.FromDecimal(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %v", err)
	}

	return nil, s.vault.SetWithdrawalFee(caller, req.DepositID, amount)
}

// withdrawRequest carries a signature-authorized withdrawal.
type withdrawRequest struct {
	DepositID    uint64 `json:"depositId"`
	ExpiryHeight uint64 `json:"expiryHeight"`
	Signature    string `json:"signature"`
	Payment      string `json:"payment"`
}

func (s *Server) handleWithdraw(caller ledger.Identity, body json.RawMessage) (any, error) {
	var req withdrawRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("malformed body: %v", err)
	}

	sig, err := hex.DecodeString(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %v", err)
	}

	payment := new(uint256.Int)
	if req.Payment != "" {
		payment, err = uint256.FromDecimal(req.Payment)
		if err != nil {
			return nil, fmt.Errorf("invalid payment: %v", err)
		}
	}

	return nil, s.vault.WithdrawWithSignature(caller, req.DepositID, sig, req.ExpiryHeight, payment)
}

// batchRequest carries an emergency batch range.
type batchRequest struct {
	StartID   uint64 `json:"startId"`
	EndID     uint64 `json:"endId"`
	Recipient string `json:"recipient"`
}

func (s *Server) handleEmergencyBatch(caller ledger.Identity, body json.RawMessage) (any, error) {
	var req batchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("malformed body: %v", err)
	}

	recipient, err := parseIdentity("recipient", req.Recipient)
	if err != nil {
		return nil, err
	}

	return nil, s.vault.EmergencyBatchWithdrawal(caller, req.StartID, req.EndID, recipient)
}

// emergencyRequest carries a direct recovery instruction.
type emergencyRequest struct {
	Collection string `json:"collection"`
	ItemID     uint64 `json:"itemId"`
	Quantity   uint64 `json:"quantity,omitempty"`
	Recipient  string `json:"recipient"`
}

func (s *Server) handleEmergencyUnique(caller ledger.Identity, body json.RawMessage) (any, error) {
	req, collection, recipient, err := parseEmergency(body)
	if err != nil {
		return nil, err
	}

	return nil, s.vault.EmergencyWithdrawUnique(caller, collection, req.ItemID, recipient)
}

func (s *Server) handleEmergencyFungible(caller ledger.Identity, body json.RawMessage) (any, error) {
	req, collection, recipient, err := parseEmergency(body)
	if err != nil {
		return nil, err
	}

	return nil, s.vault.EmergencyWithdrawFungible(caller, collection, req.ItemID, req.Quantity, recipient)
}

// parseEmergency decodes the shared emergency request fields.
func parseEmergency(body json.RawMessage) (emergencyRequest, ledger.CollectionRef, ledger.Identity, error) {
	var req emergencyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, ledger.CollectionRef{}, ledger.Identity{}, fmt.Errorf("malformed body: %v", err)
	}

	collection, err := parseCollection(req.Collection)
	if err != nil {
		return req, ledger.CollectionRef{}, ledger.Identity{}, err
	}

	recipient, err := parseIdentity("recipient", req.Recipient)
	if err != nil {
		return req, ledger.CollectionRef{}, ledger.Identity{}, err
	}

	return req, collection, recipient, nil
}

func (s *Server) handleSweep(caller ledger.Identity, body json.RawMessage) (any, error) {
	var req identityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("malformed body: %v", err)
	}

	recipient, err := parseIdentity("recipient", req.Recipient)
	if err != nil {
		return nil, err
	}

	return nil, s.vault.WithdrawAllFunds(caller, recipient)
}

// handleAssetReceived acknowledges an inbound transfer notification.
// Always a no-op: deposits do their bookkeeping synchronously.
func (s *Server) handleAssetReceived(w http.ResponseWriter, r *http.Request) {
	io.Copy(io.Discard, io.LimitReader(r.Body, maxRequestSize))

	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	highest, err := s.vault.HighestDepositID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	signer, err := s.vault.AuthorizedSigner()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	vaultID := s.vault.VaultID()

	writeJSON(w, http.StatusOK, map[string]any{
		"vaultId":          hex.EncodeToString(vaultID[:]),
		"height":           s.seq.Height(),
		"highestDepositId": highest,
		"signer":           hex.EncodeToString(signer[:]),
		"lastEventSeq":     s.events.LastSeq(),
	})
}

// handleGetDeposit handles GET /deposit/{id} requests.
func (s *Server) handleGetDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deposit id")
		return
	}

	entry, live, err := s.vault.Deposit(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !live {
		writeError(w, http.StatusNotFound, "no such deposit")
		return
	}

	fee, err := s.vault.WithdrawalFee(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"depositId":  entry.ID,
		"collection": hex.EncodeToString(entry.Asset.Collection[:]),
		"itemId":     entry.Asset.ItemID,
		"kind":       entry.Asset.Kind.String(),
		"quantity":   entry.Asset.Quantity,
		"depositor":  hex.EncodeToString(entry.Depositor[:]),
		"fee":        fee.Dec(),
	})
}

// eventResponse is the wire shape of one event record.
type eventResponse struct {
	Seq        uint64 `json:"seq"`
	Type       string `json:"type"`
	Actor      string `json:"actor"`
	DepositID  uint64 `json:"depositId"`
	Collection string `json:"collection,omitempty"`
	ItemID     uint64 `json:"itemId,omitempty"`
}

// handleEvents handles GET /events?from=N&limit=N requests.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	from := uint64(1)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from")
			return
		}
		from = parsed
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxEventPage {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := s.events.List(from, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]eventResponse, len(records))
	for i, rec := range records {
		out[i] = eventResponse{
			Seq:       rec.Seq,
			Type:      rec.Event.Type.String(),
			Actor:     hex.EncodeToString(rec.Event.Actor[:]),
			DepositID: rec.Event.DepositID,
			ItemID:    rec.Event.ItemID,
		}
		if !rec.Event.Collection.IsZero() {
			out[i].Collection = hex.EncodeToString(rec.Event.Collection[:])
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

// handleSnapshot handles GET /snapshot requests.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.vault.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
