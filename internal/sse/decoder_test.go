package sse

import "testing"

func TestFeedSingleMessage(t *testing.T) {
	d := New()
	got := d.Feed([]byte("data: {\"status\":\"listening\"}\n\n"))
	if len(got) != 1 || got[0] != `{"status":"listening"}` {
		t.Fatalf("unexpected messages: %v", got)
	}
}

func TestFeedSplitAcrossChunks(t *testing.T) {
	d := New()
	if got := d.Feed([]byte("data: {\"sta")); len(got) != 0 {
		t.Fatalf("incomplete frame should buffer, got %v", got)
	}
	if got := d.Feed([]byte("tus\":\"ok\"}\n")); len(got) != 0 {
		t.Fatalf("frame still incomplete, got %v", got)
	}
	got := d.Feed([]byte("\n"))
	if len(got) != 1 || got[0] != `{"status":"ok"}` {
		t.Fatalf("unexpected messages: %v", got)
	}
}

func TestFeedMultipleMessagesOneChunk(t *testing.T) {
	d := New()
	got := d.Feed([]byte("data: one\n\ndata: two\n\n"))
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected messages: %v", got)
	}
}

func TestFeedIgnoresNonDataFrames(t *testing.T) {
	d := New()
	got := d.Feed([]byte(":keepalive\n\nevent: ping\n\ndata: real\n\n"))
	if len(got) != 1 || got[0] != "real" {
		t.Fatalf("only data frames should pass: %v", got)
	}
}

func TestFeedLeftoverStaysBuffered(t *testing.T) {
	d := New()
	if got := d.Feed([]byte("data: a\n\ndata: partial")); len(got) != 1 || got[0] != "a" {
		t.Fatalf("unexpected messages")
	}
	got := d.Feed([]byte("\n\n"))
	if len(got) != 1 || got[0] != "partial" {
		t.Fatalf("leftover should complete: %v", got)
	}
}
