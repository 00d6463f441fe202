package indexdb

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"voxelguard.ai/internal/sim/integrity/model"
	"voxelguard.ai/internal/sim/tuning"
)

type FlagQuery struct {
	ActorID   string
	Kind      string
	SinceTick uint64
	Limit     int
}

type FlagRow struct {
	ID       int64          `json:"id"`
	WorldID  string         `json:"world_id"`
	Tick     uint64         `json:"tick"`
	ActorID  string         `json:"actor_id"`
	Kind     string         `json:"kind"`
	Evidence model.Evidence `json:"evidence,omitempty"`
	AtMs     int64          `json:"at_ms"`
}

// RecentFlags returns matching flags, newest first.
func (s *SQLiteIndex) RecentFlags(ctx context.Context, q FlagQuery) ([]FlagRow, error) {
	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}
	var (
		where []string
		args  []any
	)
	if q.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, q.ActorID)
	}
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, q.Kind)
	}
	if q.SinceTick > 0 {
		where = append(where, "tick >= ?")
		args = append(args, int64(q.SinceTick))
	}
	query := `SELECT id, world_id, tick, actor_id, kind, evidence_json, at_ms FROM flags`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FlagRow
	for rows.Next() {
		var (
			r    FlagRow
			tick int64
			ev   string
		)
		if err := rows.Scan(&r.ID, &r.WorldID, &tick, &r.ActorID, &r.Kind, &ev, &r.AtMs); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		if ev != "" && ev != "null" {
			_ = json.Unmarshal([]byte(ev), &r.Evidence)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FlagCounts groups flags by kind.
func (s *SQLiteIndex) FlagCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM flags GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

type CorrectionRow struct {
	Tick      uint64 `json:"tick"`
	ActorID   string `json:"actor_id"`
	Kind      string `json:"kind"`
	Reapplied bool   `json:"reapplied"`
}

func (s *SQLiteIndex) Corrections(ctx context.Context, actorID string, limit int) ([]CorrectionRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, actor_id, kind, reapplied FROM corrections WHERE (? = '' OR actor_id = ?) ORDER BY id DESC LIMIT ?`,
		actorID, actorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CorrectionRow
	for rows.Next() {
		var (
			r    CorrectionRow
			tick int64
			re   int
		)
		if err := rows.Scan(&tick, &r.ActorID, &r.Kind, &re); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		r.Reapplied = re != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

type SessionRow struct {
	SessionID   string  `json:"session_id"`
	ActorID     string  `json:"actor_id"`
	Name        string  `json:"name"`
	StartedTick uint64  `json:"started_tick"`
	EndedTick   *uint64 `json:"ended_tick,omitempty"`
}

// OpenSessions lists sessions without an end tick.
func (s *SQLiteIndex) OpenSessions(ctx context.Context) ([]SessionRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, actor_id, name, started_tick FROM sessions WHERE ended_tick IS NULL ORDER BY started_tick, actor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionRow
	for rows.Next() {
		var (
			r    SessionRow
			tick int64
		)
		if err := rows.Scan(&r.SessionID, &r.ActorID, &r.Name, &tick); err != nil {
			return nil, err
		}
		r.StartedTick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadOverrides reads the persisted config overrides. Overrides are written
// synchronously: they are operator actions, not sim traffic.
func (s *SQLiteIndex) LoadOverrides(ctx context.Context) (tuning.Overrides, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config_overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := tuning.Overrides{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) SetOverride(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO config_overrides(key,value,updated_at) VALUES(?,?,?)`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteIndex) DeleteOverride(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM config_overrides WHERE key = ?`, key)
	return err
}
