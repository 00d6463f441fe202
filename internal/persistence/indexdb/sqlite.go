package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	_ "modernc.org/sqlite"

	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/model"
)

// SQLiteIndex is a queryable secondary index of flags, corrections and
// sessions. Writes are queued and committed in batches by one goroutine; the
// JSONL logs remain the source of truth, so the queue drops when full.
type SQLiteIndex struct {
	db      *sql.DB
	worldID string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	breaker *gobreaker.CircuitBreaker

	dropped       atomic.Uint64
	failedBatches atomic.Uint64
	lostRows      atomic.Uint64
}

type Options struct {
	WorldID   string
	QueueSize int
	// BatchSize rows trigger a commit; otherwise commits happen every FlushEvery.
	BatchSize  int
	FlushEvery time.Duration
	// BreakerTimeout is how long the breaker stays open after tripping.
	BreakerTimeout time.Duration
}

type reqKind int

const (
	reqFlag reqKind = iota + 1
	reqCorrection
	reqSessionStart
	reqSessionEnd
	reqSync
)

type req struct {
	kind reqKind

	flag       model.DetectionEvent
	correction correct.Applied
	session    sessionRow
	atMs       int64
	done       chan struct{}
}

type sessionRow struct {
	SessionID string
	ActorID   string
	Name      string
	Tick      uint64
}

func OpenSQLite(path string, opts Options) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 65536
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 512
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = time.Second
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
		db:      db,
		worldID: opts.WorldID,
		ch:      make(chan req, opts.QueueSize),
		breaker: newBreaker(opts.BreakerTimeout),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(opts.BatchSize, opts.FlushEvery)
	}()
	return s, nil
}

func newBreaker(timeout time.Duration) *gobreaker.CircuitBreaker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "indexdb",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
	})
}

func initPragmas(db *sql.DB) error {
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
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS flags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			actor_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			evidence_json TEXT NOT NULL,
			at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_flags_actor_tick ON flags(actor_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_flags_kind_tick ON flags(kind, tick);`,
		`CREATE TABLE IF NOT EXISTS corrections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			actor_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			reapplied INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_corrections_actor_tick ON corrections(actor_id, tick);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			name TEXT NOT NULL,
			started_tick INTEGER NOT NULL,
			ended_tick INTEGER,
			started_at_ms INTEGER NOT NULL,
			ended_at_ms INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_actor ON sessions(actor_id, ended_tick);`,
		`CREATE TABLE IF NOT EXISTS config_overrides (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// Report implements the integrity FlagSink.
func (s *SQLiteIndex) Report(ev model.DetectionEvent) {
	s.enqueue(req{kind: reqFlag, flag: ev, atMs: time.Now().UnixMilli()})
}

func (s *SQLiteIndex) WriteCorrections(tick uint64, applied []correct.Applied) error {
	for _, a := range applied {
		s.enqueue(req{kind: reqCorrection, correction: a})
	}
	return nil
}

func (s *SQLiteIndex) SessionStarted(sessionID, actorID, name string, tick uint64) {
	s.enqueue(req{kind: reqSessionStart, session: sessionRow{SessionID: sessionID, ActorID: actorID, Name: name, Tick: tick}, atMs: time.Now().UnixMilli()})
}

func (s *SQLiteIndex) SessionEnded(actorID string, tick uint64) {
	s.enqueue(req{kind: reqSessionEnd, session: sessionRow{ActorID: actorID, Tick: tick}, atMs: time.Now().UnixMilli()})
}

// Sync blocks until everything queued before it has been committed (or
// dropped by the breaker).
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	Dropped       uint64 `json:"dropped"`
	FailedBatches uint64 `json:"failed_batches"`
	LostRows      uint64 `json:"lost_rows"`
	Breaker       string `json:"breaker"`
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		Dropped:       s.dropped.Load(),
		FailedBatches: s.failedBatches.Load(),
		LostRows:      s.lostRows.Load(),
		Breaker:       s.breaker.State().String(),
	}
}

func (s *SQLiteIndex) loop(batchSize int, flushEvery time.Duration) {
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]req, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				flush()
				return
			}
			if r.kind == reqSync {
				flush()
				close(r.done)
				continue
			}
			batch = append(batch, r)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// flush commits one batch through the breaker. While the breaker is open the
// batch is discarded without touching the database.
func (s *SQLiteIndex) flush(batch []req) {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.writeBatch(batch)
	})
	if err != nil {
		s.failedBatches.Add(1)
		s.lostRows.Add(uint64(len(batch)))
	}
}

func (s *SQLiteIndex) writeBatch(batch []req) error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range batch {
		if err := s.writeOne(tx, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) writeOne(tx *sql.Tx, r req) error {
	switch r.kind {
	case reqFlag:
		ev, err := json.Marshal(r.flag.Evidence)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO flags(world_id,tick,actor_id,kind,evidence_json,at_ms) VALUES(?,?,?,?,?,?)`,
			s.worldID, int64(r.flag.Tick), r.flag.ActorID, string(r.flag.Kind), string(ev), r.atMs)
		return err
	case reqCorrection:
		c := r.correction
		raw, err := json.Marshal(c)
		if err != nil {
			return err
		}
		kind := ""
		if c.Correction != nil {
			kind = string(c.Correction.Kind)
		}
		_, err = tx.Exec(`INSERT INTO corrections(world_id,tick,actor_id,kind,reapplied,raw_json) VALUES(?,?,?,?,?,?)`,
			s.worldID, int64(c.Tick), c.ActorID, kind, boolInt(c.Reapplied), string(raw))
		return err
	case reqSessionStart:
		se := r.session
		_, err := tx.Exec(`INSERT OR REPLACE INTO sessions(session_id,world_id,actor_id,name,started_tick,started_at_ms) VALUES(?,?,?,?,?,?)`,
			se.SessionID, s.worldID, se.ActorID, se.Name, int64(se.Tick), r.atMs)
		return err
	case reqSessionEnd:
		se := r.session
		_, err := tx.Exec(`UPDATE sessions SET ended_tick=?, ended_at_ms=? WHERE world_id=? AND actor_id=? AND ended_tick IS NULL`,
			int64(se.Tick), r.atMs, s.worldID, se.ActorID)
		return err
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
