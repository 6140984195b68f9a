package feed

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"testing"
	"time"

	"github.com/quic-go/quic-go"

	"StrongRoom/internal/eventlog"
	"StrongRoom/internal/ledger"
)

func startTestFeed(t *testing.T) *Feed {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	f, err := New("127.0.0.1:0", key)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := f.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	t.Cleanup(f.Stop)

	return f
}

func dialTestFeed(t *testing.T, ctx context.Context, f *Feed) *quic.Conn {
	t.Helper()

	tlsConfig := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{alpnProtocol},
	}

	conn, err := quic.DialAddr(ctx, f.Addr(), tlsConfig, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	return conn
}

func (f *Feed) subscriberCount() int {
	f.subsMu.Lock()
	defer f.subsMu.Unlock()

	return len(f.subs)
}

func waitForSubscribers(t *testing.T, f *Feed, want int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for f.subscriberCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count = %d, want %d", f.subscriberCount(), want)
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func TestEmitDeliversEventToSubscriber(t *testing.T) {
	f := startTestFeed(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := dialTestFeed(t, ctx, f)
	defer conn.CloseWithError(0, "done")

	waitForSubscribers(t, f, 1)

	ev := ledger.Event{
		Type:       ledger.EventDeposit,
		Actor:      ledger.Identity{0x02},
		DepositID:  1,
		Collection: ledger.CollectionRef{0xaa},
		ItemID:     7,
	}
	f.Emit(ev)

	stream, err := conn.AcceptUniStream(ctx)
	if err != nil {
		t.Fatalf("accept stream failed: %v", err)
	}

	frame, err := ReadFrame(stream)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	got, err := eventlog.DecodeEvent(frame)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if got != ev {
		t.Errorf("received event %+v, want %+v", got, ev)
	}
}

// A subscriber whose connection is gone must be dropped by Emit rather
// than stall the broadcast, since Emit runs on the commit path.
func TestEmitDropsDeadSubscriber(t *testing.T) {
	f := startTestFeed(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := dialTestFeed(t, ctx, f)
	waitForSubscribers(t, f, 1)

	conn.CloseWithError(0, "going away")

	ev := ledger.Event{Type: ledger.EventWithdrawal, Actor: ledger.Identity{0x03}, DepositID: 2}

	deadline := time.Now().Add(5 * time.Second)
	for f.subscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("dead subscriber was never dropped")
		}

		f.Emit(ev)
		time.Sleep(10 * time.Millisecond)
	}
}
