package charstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"emberveil.gg/internal/protocol"
)

// SQLiteStore persists character snapshots. Writes are handed to a single
// writer goroutine through a buffered channel so the tick loop never waits
// on disk; a full channel drops the save and counts it (the next sweep or
// the shutdown flush retries with fresher state anyway).
type SQLiteStore struct {
	db *sql.DB

	ch      chan protocol.CharacterState
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
	logger  *log.Logger
}

func Open(path string, logger *log.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db:     db,
		ch:     make(chan protocol.CharacterState, 4096),
		logger: logger,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-heavy save pattern; NORMAL is fine for a store
	// whose source of truth is the in-memory world until shutdown.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS characters (
			wallet TEXT NOT NULL,
			name TEXT NOT NULL,
			state_json TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (wallet, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_characters_updated ON characters(updated_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveCharacter enqueues a snapshot for the writer goroutine. Best-effort
// by contract: failures are logged, never surfaced to the simulation.
func (s *SQLiteStore) SaveCharacter(state protocol.CharacterState) {
	if s == nil {
		return
	}
	select {
	case s.ch <- state:
	default:
		if s.dropped.Add(1)%100 == 1 && s.logger != nil {
			s.logger.Printf("charstore: save queue full, dropping (total dropped %d)", s.dropped.Load())
		}
	}
}

// Dropped reports how many saves were discarded due to backpressure.
func (s *SQLiteStore) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

// LoadCharacter reads the latest snapshot for (wallet, name), with found=false
// when the character has never been saved.
func (s *SQLiteStore) LoadCharacter(wallet, name string) (protocol.CharacterState, bool, error) {
	var state protocol.CharacterState
	var raw string
	err := s.db.QueryRow(
		`SELECT state_json FROM characters WHERE wallet = ? AND name = ?`, wallet, name,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return state, false, nil
	}
	if err != nil {
		return state, false, err
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return state, false, fmt.Errorf("characters row %s/%s: %w", wallet, name, err)
	}
	return state, true, nil
}

// Close stops accepting saves, drains the queue, and closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() { close(s.ch) })
	s.wg.Wait()
	return s.db.Close()
}

func (s *SQLiteStore) loop() {
	for state := range s.ch {
		if err := s.write(state); err != nil && s.logger != nil {
			s.logger.Printf("charstore: save %s/%s: %v", state.Wallet, state.Name, err)
		}
	}
}

func (s *SQLiteStore) write(state protocol.CharacterState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO characters (wallet, name, state_json, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (wallet, name) DO UPDATE SET
		   state_json = excluded.state_json,
		   updated_at = excluded.updated_at`,
		state.Wallet, state.Name, string(raw), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}
