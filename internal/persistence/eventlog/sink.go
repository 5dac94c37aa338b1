package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Sink drains events to hourly-rotated JSONL+zstd files off the tick path.
// Enqueue never blocks; when the channel is full the event is dropped and
// counted. Durable event history is best-effort, the ring is authoritative
// for the status-poll surface.
type Sink struct {
	ch      chan Event
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
	logger  *log.Logger

	baseDir string
	prefix  string

	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewSink(baseDir, prefix string, logger *log.Logger) *Sink {
	s := &Sink{
		ch:      make(chan Event, 8192),
		logger:  logger,
		baseDir: baseDir,
		prefix:  prefix,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Sink) Enqueue(ev Event) {
	if s == nil {
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the sink was full.
func (s *Sink) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() { close(s.ch) })
	s.wg.Wait()
	return s.closeFile()
}

func (s *Sink) run() {
	defer s.wg.Done()
	for ev := range s.ch {
		if err := s.write(ev); err != nil && s.logger != nil {
			s.logger.Printf("eventlog: write: %v", err)
		}
	}
}

func (s *Sink) write(ev Event) error {
	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != s.curHour {
		if err := s.rotate(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *Sink) rotate(hour string) error {
	if err := s.closeFile(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", s.prefix, hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	s.f = f
	s.enc = enc
	s.w = bufio.NewWriterSize(enc, 128*1024)
	s.curHour = hour
	return nil
}

func (s *Sink) closeFile() error {
	var err error
	if s.w != nil {
		_ = s.w.Flush()
	}
	if s.enc != nil {
		err = s.enc.Close()
		s.enc = nil
	}
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	s.w = nil
	return err
}
