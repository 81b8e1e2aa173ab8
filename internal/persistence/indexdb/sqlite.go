// Package indexdb is an optional, write-only sqlite read-model of
// bridge traffic: accepted batches, chat messages and advice. It exists
// for operators digging through what an agent did; nothing in here is
// ever read back into bridge state, so a restart still clears all
// mailboxes.
package indexdb

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

	"citymayor.ai/internal/protocol"
)

type SQLiteIndex struct {
	db  *sql.DB
	log *log.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqBatch reqKind = iota + 1
	reqMessage
	reqAdvice
)

type req struct {
	kind reqKind

	batch  protocol.Batch
	queued int

	message protocol.ChatMessage
	advice  protocol.Advice
}

// Open creates (or reuses) the index database at path and starts the
// writer goroutine.
func Open(path string, logger *log.Logger) (*SQLiteIndex, error) {
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

	s := &SQLiteIndex{
		db:  db,
		log: logger,
		// Generous buffer: a chatty agent bursts messages without ever
		// stalling a request handler.
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only workload; NORMAL durability is fine for
	// a secondary index.
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
		`CREATE TABLE IF NOT EXISTS batches (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			queued INTEGER NOT NULL,
			reason TEXT,
			actions INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			content TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_at ON messages(at);`,
		`CREATE TABLE IF NOT EXISTS advice (
			id TEXT PRIMARY KEY,
			at INTEGER NOT NULL,
			content TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteIndex) enqueue(r req) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Never block a request handler on the index.
		s.dropped.Add(1)
	}
}

// RecordBatch indexes an accepted action batch.
func (s *SQLiteIndex) RecordBatch(batch protocol.Batch, queued int) {
	s.enqueue(req{kind: reqBatch, batch: batch, queued: queued})
}

// RecordMessage indexes a published chat message.
func (s *SQLiteIndex) RecordMessage(msg protocol.ChatMessage) {
	s.enqueue(req{kind: reqMessage, message: msg})
}

// RecordAdvice indexes a piece of operator advice.
func (s *SQLiteIndex) RecordAdvice(adv protocol.Advice) {
	s.enqueue(req{kind: reqAdvice, advice: adv})
}

// Dropped reports writes discarded because the buffer was full.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		var err error
		switch r.kind {
		case reqBatch:
			raw, merr := json.Marshal(r.batch)
			if merr != nil {
				err = merr
				break
			}
			_, err = s.db.Exec(
				`INSERT INTO batches (at, queued, reason, actions, raw_json) VALUES (?, ?, ?, ?, ?)`,
				time.Now().UTC().Format(time.RFC3339), r.queued, r.batch.Reason, len(r.batch.Actions), string(raw),
			)
		case reqMessage:
			_, err = s.db.Exec(
				`INSERT OR IGNORE INTO messages (id, at, type, content) VALUES (?, ?, ?, ?)`,
				r.message.ID, r.message.At, r.message.Type, r.message.Content,
			)
		case reqAdvice:
			_, err = s.db.Exec(
				`INSERT OR IGNORE INTO advice (id, at, content) VALUES (?, ?, ?)`,
				r.advice.ID, r.advice.At, r.advice.Content,
			)
		}
		if err != nil && s.log != nil {
			s.log.Printf("indexdb: write: %v", err)
		}
	}
}

// Close drains pending writes and closes the database.
func (s *SQLiteIndex) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
	})
	s.wg.Wait()
	return s.db.Close()
}
