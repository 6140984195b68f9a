package feed

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte("event payload")

	var buf bytes.Buffer
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("ReadFrame returned %q, want %q", got, payload)
	}
}

func TestWriteFrameRejectsOversize(t *testing.T) {
	var buf bytes.Buffer

	if err := writeFrame(&buf, make([]byte, maxFrameSize+1)); err == nil {
		t.Error("expected error for oversize frame")
	}
}

func TestReadFrameRejectsOversizeHeader(t *testing.T) {
	// A length prefix past the limit must be rejected before allocation.
	header := []byte{0xff, 0xff, 0xff, 0xff}

	if _, err := ReadFrame(bytes.NewReader(header)); err == nil {
		t.Error("expected error for oversize length prefix")
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte("full payload")); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()-3]

	if _, err := ReadFrame(bytes.NewReader(truncated)); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestEmptyFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, nil); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	if len(got) != 0 {
		t.Errorf("ReadFrame returned %d bytes for empty frame", len(got))
	}
}
