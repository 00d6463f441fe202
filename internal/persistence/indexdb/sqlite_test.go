package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/correct"
	"voxelguard.ai/internal/sim/integrity/model"
	"voxelguard.ai/internal/sim/tuning"
)

func openTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.sqlite"), Options{WorldID: "w1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFlagsAreIndexedAndFiltered(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	s.Report(model.DetectionEvent{ActorID: "A1", Kind: model.KindSpeedTeleport, Tick: 3, Evidence: model.Evidence{"distance": 10.0}})
	s.Report(model.DetectionEvent{ActorID: "A1", Kind: model.KindReachBreak, Tick: 5})
	s.Report(model.DetectionEvent{ActorID: "A2", Kind: model.KindSpeedTeleport, Tick: 7})
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	all, err := s.RecentFlags(ctx, FlagQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 || all[0].ActorID != "A2" || all[0].WorldID != "w1" {
		t.Fatalf("all=%+v", all)
	}
	mine, _ := s.RecentFlags(ctx, FlagQuery{ActorID: "A1", Kind: string(model.KindSpeedTeleport)})
	if len(mine) != 1 || mine[0].Evidence["distance"] != 10.0 {
		t.Fatalf("filtered=%+v", mine)
	}
	late, _ := s.RecentFlags(ctx, FlagQuery{SinceTick: 5})
	if len(late) != 2 {
		t.Fatalf("since tick 5: %+v", late)
	}
	counts, err := s.FlagCounts(ctx)
	if err != nil || counts[string(model.KindSpeedTeleport)] != 2 || counts[string(model.KindReachBreak)] != 1 {
		t.Fatalf("counts=%v err=%v", counts, err)
	}
}

func TestCorrectionsAndSessions(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	s.SessionStarted("s-1", "A1", "alice", 0)
	s.SessionStarted("s-2", "A2", "bob", 1)
	_ = s.WriteCorrections(4, []correct.Applied{
		{ActorID: "A1", Tick: 4, Correction: correct.Reposition(geom.Vec3{1, 64, 1})},
		{ActorID: "A1", Tick: 5, Correction: &correct.Correction{Kind: correct.KindImpulse}, Reapplied: true},
	})
	s.SessionEnded("A1", 9)
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	corr, err := s.Corrections(ctx, "A1", 0)
	if err != nil || len(corr) != 2 {
		t.Fatalf("corrections=%+v err=%v", corr, err)
	}
	if !corr[0].Reapplied || corr[1].Kind != string(correct.KindReposition) {
		t.Fatalf("corrections=%+v", corr)
	}
	open, err := s.OpenSessions(ctx)
	if err != nil || len(open) != 1 || open[0].Name != "bob" {
		t.Fatalf("open sessions=%+v err=%v", open, err)
	}
}

func TestOverridesPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	ctx := context.Background()
	s, err := OpenSQLite(path, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	live := tuning.NewLiveOverrides(tuning.Defaults(), nil)
	if err := live.Set("speed_teleport.min_distance", "6"); err != nil {
		t.Fatalf("set: %v", err)
	}
	for k, v := range live.Snapshot() {
		if err := s.SetOverride(ctx, k, v); err != nil {
			t.Fatalf("persist: %v", err)
		}
	}
	_ = s.SetOverride(ctx, "flags", "false")
	_ = s.DeleteOverride(ctx, "flags")
	_ = s.Close()

	s2, err := OpenSQLite(path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.LoadOverrides(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got["speed_teleport.min_distance"] != "6" {
		t.Fatalf("overrides=%v", got)
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1), breaker: newBreaker(0)}
	s.Report(model.DetectionEvent{ActorID: "A1"})
	s.Report(model.DetectionEvent{ActorID: "A1"})
	_ = s.WriteCorrections(1, []correct.Applied{{ActorID: "A1"}})

	st := s.Stats()
	if st.Dropped != 2 || st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "x.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = db.Close() // every write now fails

	s := &SQLiteIndex{db: db, breaker: newBreaker(time.Minute)}
	batch := []req{{kind: reqFlag, flag: model.DetectionEvent{ActorID: "A1"}}}
	for i := 0; i < 5; i++ {
		s.flush(batch)
	}
	st := s.Stats()
	if st.Breaker != gobreaker.StateOpen.String() {
		t.Fatalf("breaker=%s", st.Breaker)
	}
	if st.FailedBatches != 5 || st.LostRows != 5 {
		t.Fatalf("stats=%+v", st)
	}
}
