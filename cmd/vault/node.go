package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"StrongRoom/internal/api"
	"StrongRoom/internal/authsig"
	"StrongRoom/internal/eventlog"
	"StrongRoom/internal/feed"
	"StrongRoom/internal/ledger"
	"StrongRoom/internal/logger"
	"StrongRoom/internal/mover"
	"StrongRoom/internal/storage"
)

// Node represents a running vault node.
type Node struct {
	cfg     *Config
	storage *storage.Store
	seq     *ledger.Sequence
	events  *eventlog.Log
	feed    *feed.Feed
	vault   *ledger.Ledger
	api     *api.Server
}

// NewNode creates and initializes a new vault node.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg}

	if err := n.initStorage(); err != nil {
		return nil, err
	}

	if err := n.initLedger(); err != nil {
		n.Close()
		return nil, err
	}

	return n, nil
}

// initStorage initializes the Pebble storage and loads a snapshot if
// requested.
func (n *Node) initStorage() error {
	dbPath := n.cfg.DataPath + "/db"

	if err := os.MkdirAll(n.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	n.storage = db

	if n.cfg.RestorePath != "" {
		if err := n.restoreSnapshot(); err != nil {
			return err
		}
	}

	return nil
}

// restoreSnapshot loads the snapshot file into storage. Existing keys
// are overwritten.
func (n *Node) restoreSnapshot() error {
	data, err := os.ReadFile(n.cfg.RestorePath)
	if err != nil {
		return fmt.Errorf("read snapshot:\n%w", err)
	}

	if err := ledger.Restore(n.storage, data); err != nil {
		return fmt.Errorf("restore snapshot:\n%w", err)
	}

	logger.Info("snapshot restored", "path", n.cfg.RestorePath, "size", len(data))

	return nil
}

// initLedger wires the event sinks, external bridges and the ledger core.
func (n *Node) initLedger() error {
	seq, err := ledger.NewSequence(n.storage)
	if err != nil {
		return fmt.Errorf("init height sequence:\n%w", err)
	}

	n.seq = seq

	events, err := eventlog.Open(n.storage)
	if err != nil {
		return fmt.Errorf("init event log:\n%w", err)
	}

	n.events = events

	sinks := []ledger.EventSink{events}

	if n.cfg.FeedAddress != "" {
		f, err := feed.New(n.cfg.FeedAddress, n.cfg.PrivateKey)
		if err != nil {
			return fmt.Errorf("init event feed:\n%w", err)
		}

		n.feed = f
		sinks = append(sinks, f)
	}

	ext := ledger.External{
		Assets:   mover.NewAssetBridge(n.cfg.AssetMoverURL),
		Funds:    mover.NewFundsBridge(n.cfg.FundsMoverURL),
		Recovery: authsig.Verifier{},
		Heights:  seq,
		Events:   ledger.FanOut(sinks...),
	}

	vault, err := ledger.New(n.storage, n.cfg.Admin, ext)
	if err != nil {
		return fmt.Errorf("init ledger:\n%w", err)
	}

	n.vault = vault

	return nil
}

// Run starts the feed and HTTP API and blocks until shutdown.
func (n *Node) Run() error {
	if n.feed != nil {
		if err := n.feed.Start(); err != nil {
			return fmt.Errorf("start feed:\n%w", err)
		}
	}

	n.api = api.New(n.cfg.HTTPAddress, n.vault, n.events, n.seq)
	if err := n.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	return n.waitForShutdown()
}

// waitForShutdown blocks until SIGINT or SIGTERM, then shuts down.
func (n *Node) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close releases all node resources.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.feed != nil {
		n.feed.Stop()
	}

	if n.storage != nil {
		n.storage.Close()
	}

	return nil
}
