// Package feed streams committed ledger events to subscribers over QUIC.
// A subscriber dials the feed address, and receives every subsequent event
// as a length-prefixed frame on a server-initiated unidirectional stream.
package feed

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"StrongRoom/internal/eventlog"
	"StrongRoom/internal/ledger"
	"StrongRoom/internal/logger"
)

// alpnProtocol is the ALPN protocol identifier.
const alpnProtocol = "strongroom-feed/1"

// writeTimeout bounds a single frame write; Emit runs on the commit
// path, so a subscriber that stops reading must not stall it.
const writeTimeout = 5 * time.Second

// Feed is a one-way QUIC event broadcaster implementing ledger.EventSink.
type Feed struct {
	listenAddr string
	tlsConfig  *tls.Config
	quicConfig *quic.Config

	listener *quic.Listener

	subs   map[string]*subscriber // subs maps remote address to subscriber
	subsMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// subscriber is one connected event consumer.
type subscriber struct {
	conn   *quic.Conn
	stream *quic.SendStream
}

// New creates a feed listening on the given address, with a self-signed
// certificate derived from the service key.
func New(listenAddr string, privateKey ed25519.PrivateKey) (*Feed, error) {
	cert, err := generateCertificate(privateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{alpnProtocol},
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Feed{
		listenAddr: listenAddr,
		tlsConfig:  tlsConfig,
		quicConfig: quicConfig,
		subs:       make(map[string]*subscriber),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start begins accepting subscribers.
func (f *Feed) Start() error {
	listener, err := quic.ListenAddr(f.listenAddr, f.tlsConfig, f.quicConfig)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	f.listener = listener

	f.wg.Add(1)
	go f.acceptLoop()

	logger.Info("event feed started", "addr", listener.Addr().String())

	return nil
}

// Addr returns the listener's address. Returns empty string if not started.
func (f *Feed) Addr() string {
	if f.listener == nil {
		return ""
	}

	return f.listener.Addr().String()
}

// acceptLoop registers incoming subscriber connections.
func (f *Feed) acceptLoop() {
	defer f.wg.Done()

	for {
		conn, err := f.listener.Accept(f.ctx)
		if err != nil {
			return
		}

		stream, err := conn.OpenUniStreamSync(f.ctx)
		if err != nil {
			conn.CloseWithError(1, "open stream failed")
			continue
		}

		addr := conn.RemoteAddr().String()

		f.subsMu.Lock()
		f.subs[addr] = &subscriber{conn: conn, stream: stream}
		f.subsMu.Unlock()

		logger.Debug("feed subscriber connected", "addr", addr)
	}
}

// Emit implements ledger.EventSink by broadcasting the encoded event to
// every subscriber. Subscribers that fail to accept the write are dropped.
func (f *Feed) Emit(ev ledger.Event) {
	frame := eventlog.EncodeEvent(ev)

	f.subsMu.Lock()
	defer f.subsMu.Unlock()

	for addr, sub := range f.subs {
		sub.stream.SetWriteDeadline(time.Now().Add(writeTimeout))

		if err := writeFrame(sub.stream, frame); err != nil {
			logger.Debug("feed subscriber dropped", "addr", addr, "error", err)
			sub.conn.CloseWithError(2, "write failed")
			delete(f.subs, addr)
		}
	}
}

// Stop closes the listener and all subscriber connections.
func (f *Feed) Stop() {
	f.cancel()

	if f.listener != nil {
		f.listener.Close()
	}

	f.subsMu.Lock()
	for addr, sub := range f.subs {
		sub.conn.CloseWithError(0, "feed shutting down")
		delete(f.subs, addr)
	}
	f.subsMu.Unlock()

	f.wg.Wait()
}
