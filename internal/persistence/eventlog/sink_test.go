package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestSink_WritesCompressedJSONL(t *testing.T) {
	dir := t.TempDir()
	s := NewSink(dir, "events", nil)

	s.Enqueue(Event{Tick: 1, Zone: "meadow", Kind: KindHit, ActorID: "E1", Target: "E2", Amount: 20})
	s.Enqueue(Event{Tick: 2, Zone: "meadow", Kind: KindKill, ActorID: "E1", Target: "E2"})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("files = %d, want 1", len(entries))
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "events-") || !strings.HasSuffix(name, ".jsonl.zst") {
		t.Fatalf("unexpected file name %q", name)
	}

	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var events []Event
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Kind != KindHit || events[0].Amount != 20 {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Kind != KindKill || events[1].Tick != 2 {
		t.Fatalf("second event = %+v", events[1])
	}
}

func TestSink_NilSafe(t *testing.T) {
	var s *Sink
	s.Enqueue(Event{Tick: 1})
	if s.Dropped() != 0 {
		t.Fatalf("nil sink should be inert")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close nil sink: %v", err)
	}
}
