package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/quic-go/quic-go"

	"StrongRoom/internal/eventlog"
	"StrongRoom/internal/feed"
	"StrongRoom/internal/ledger"
)

// alpnProtocol must match the feed listener's ALPN identifier.
const alpnProtocol = "strongroom-feed/1"

// Subscription is a live event stream from a vault node's feed.
type Subscription struct {
	conn   *quic.Conn
	events chan ledger.Event
	cancel context.CancelFunc
}

// Subscribe connects to the node's event feed and streams events until
// Close is called or the connection drops. The feed uses a self-signed
// certificate, so the handshake skips chain verification.
func Subscribe(feedAddr string) (*Subscription, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{alpnProtocol},
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dialCancel()

	conn, err := quic.DialAddr(dialCtx, feedAddr, tlsConfig, quicConfig)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("dial feed %s:\n%w", feedAddr, err)
	}

	stream, err := conn.AcceptUniStream(ctx)
	if err != nil {
		conn.CloseWithError(1, "accept stream failed")
		cancel()
		return nil, fmt.Errorf("accept feed stream:\n%w", err)
	}

	sub := &Subscription{
		conn:   conn,
		events: make(chan ledger.Event, 64),
		cancel: cancel,
	}

	go func() {
		defer close(sub.events)

		for {
			frame, err := feed.ReadFrame(stream)
			if err != nil {
				return
			}

			ev, err := eventlog.DecodeEvent(frame)
			if err != nil {
				return
			}

			select {
			case sub.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// Events returns the stream of incoming events. The channel closes when
// the subscription ends.
func (s *Subscription) Events() <-chan ledger.Event {
	return s.events
}

// Close terminates the subscription.
func (s *Subscription) Close() {
	s.cancel()
	s.conn.CloseWithError(0, "subscriber closing")
}
