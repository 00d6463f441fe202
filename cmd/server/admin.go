package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"voxelguard.ai/internal/persistence/indexdb"
	persistlog "voxelguard.ai/internal/persistence/log"
	"voxelguard.ai/internal/sim/tuning"
	"voxelguard.ai/internal/sim/world"
)

// adminAPI serves local-only operator endpoints. None of them touch the
// world loop except through thread-safe accessors.
type adminAPI struct {
	worldID string
	w       *world.World
	idx     *indexdb.SQLiteIndex
	live    *tuning.LiveOverrides
	flagLog *persistlog.FlagLogger
	logger  *log.Logger
}

func (a *adminAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/v1/tps", a.loopback(a.handleTPS))
	mux.HandleFunc("/admin/v1/flags", a.loopback(a.handleFlags))
	mux.HandleFunc("/admin/v1/flags/counts", a.loopback(a.handleFlagCounts))
	mux.HandleFunc("/admin/v1/sessions", a.loopback(a.handleSessions))
	mux.HandleFunc("/admin/v1/config", a.loopback(a.handleConfig))
}

func (a *adminAPI) loopback(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func (a *adminAPI) handleTPS(rw http.ResponseWriter, r *http.Request) {
	resp := struct {
		WorldID       string         `json:"world_id"`
		Tick          uint64         `json:"tick"`
		TPS           world.TPSStats `json:"tps"`
		Index         *indexdb.Stats `json:"index,omitempty"`
		FlagLogErrors int            `json:"flag_log_errors"`
	}{
		WorldID: a.worldID,
		Tick:    a.w.CurrentTick(),
		TPS:     a.w.TPS(),
	}
	if a.idx != nil {
		st := a.idx.Stats()
		resp.Index = &st
	}
	if a.flagLog != nil {
		resp.FlagLogErrors = a.flagLog.WriteErrors()
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (a *adminAPI) handleFlags(rw http.ResponseWriter, r *http.Request) {
	if a.idx == nil {
		http.Error(rw, "index disabled", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	fq := indexdb.FlagQuery{ActorID: q.Get("actor"), Kind: q.Get("kind")}
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(rw, "bad since", http.StatusBadRequest)
			return
		}
		fq.SinceTick = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(rw, "bad limit", http.StatusBadRequest)
			return
		}
		fq.Limit = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	rows, err := a.idx.RecentFlags(ctx, fq)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []indexdb.FlagRow{}
	}
	writeJSON(rw, http.StatusOK, rows)
}

func (a *adminAPI) handleFlagCounts(rw http.ResponseWriter, r *http.Request) {
	if a.idx == nil {
		http.Error(rw, "index disabled", http.StatusServiceUnavailable)
		return
	}
	counts, err := a.idx.FlagCounts(r.Context())
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(rw, http.StatusOK, counts)
}

func (a *adminAPI) handleSessions(rw http.ResponseWriter, r *http.Request) {
	if a.idx == nil {
		http.Error(rw, "index disabled", http.StatusServiceUnavailable)
		return
	}
	rows, err := a.idx.OpenSessions(r.Context())
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []indexdb.SessionRow{}
	}
	writeJSON(rw, http.StatusOK, rows)
}

type configReq struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// handleConfig lists overrides (GET), sets one (POST) or clears one (DELETE).
// Changes apply from the next tick.
func (a *adminAPI) handleConfig(rw http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(rw, http.StatusOK, a.live.Snapshot())
	case http.MethodPost:
		var req configReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(rw, "bad json", http.StatusBadRequest)
			return
		}
		if err := a.live.Set(req.Key, req.Value); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		if a.idx != nil {
			if err := a.idx.SetOverride(r.Context(), req.Key, req.Value); err != nil {
				a.logger.Printf("persist override %s: %v", req.Key, err)
			}
		}
		a.logger.Printf("config override set %s=%s", req.Key, req.Value)
		writeJSON(rw, http.StatusOK, a.live.Snapshot())
	case http.MethodDelete:
		key := r.URL.Query().Get("key")
		if !a.live.Delete(key) {
			http.Error(rw, "no such override", http.StatusNotFound)
			return
		}
		if a.idx != nil {
			if err := a.idx.DeleteOverride(r.Context(), key); err != nil {
				a.logger.Printf("delete override %s: %v", key, err)
			}
		}
		a.logger.Printf("config override cleared %s", key)
		writeJSON(rw, http.StatusOK, a.live.Snapshot())
	default:
		rw.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
