package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelguard.ai/internal/protocol"
	"voxelguard.ai/internal/sim/catalogs"
	"voxelguard.ai/internal/sim/tuning"
	"voxelguard.ai/internal/sim/world"
)

func startServer(t *testing.T, grants Grants) (*world.World, string) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tun := tuning.Defaults()
	w, err := world.New(world.WorldConfig{
		ID: "ws", TickRateHz: 50, Seed: 1, BoundaryR: 128, SurfaceY: tun.SurfaceY, EyeHeight: tun.EyeHeight,
	}, cats, world.Options{Config: tun})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	srv, err := NewServer(w, Options{Grants: grants})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hs.Close()
		cancel()
	})
	return w, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil returns the first message of type typ.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %s: %v", typ, err)
		}
		if base, _ := protocol.DecodeBase(b); base.Type == typ {
			return b
		}
	}
}

func hello(name string) protocol.HelloMsg {
	return protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ActorName: name}
}

func TestHandshakeStateAndObs(t *testing.T) {
	_, url := startServer(t, func(h protocol.HelloMsg) []string {
		if h.Auth != nil && h.Auth.Token == "secret" {
			return []string{"op"}
		}
		return nil
	})
	conn := dial(t, url)
	h := hello("alice")
	h.Auth = &protocol.Auth{Token: "secret"}
	send(t, conn, h)

	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeWelcome), &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.ActorID == "" || welcome.SessionID == "" || welcome.WorldParams.TickRateHz != 50 {
		t.Fatalf("welcome=%+v", welcome)
	}

	send(t, conn, protocol.StateMsg{
		Type: protocol.TypeState, ProtocolVersion: protocol.Version,
		Pos: welcome.Spawn, Status: protocol.Status{OnGround: true},
	})
	var obs protocol.ObsMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeObs), &obs); err != nil {
		t.Fatalf("obs: %v", err)
	}
	if obs.ActorID != welcome.ActorID || len(obs.Self.Tags) != 1 || obs.Self.Tags[0] != "op" {
		t.Fatalf("obs=%+v", obs)
	}
}

func TestBadMessagesGetErrors(t *testing.T) {
	_, url := startServer(t, nil)
	conn := dial(t, url)
	send(t, conn, hello("bob"))
	readUntil(t, conn, protocol.TypeWelcome)

	// Missing required pos/vel/rot.
	send(t, conn, map[string]any{"type": protocol.TypeState, "protocol_version": protocol.Version, "tick": 0})
	var e protocol.ErrorMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeError), &e); err != nil {
		t.Fatalf("error msg: %v", err)
	}
	if e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("code=%s", e.Code)
	}

	send(t, conn, map[string]any{"type": protocol.TypeAct, "protocol_version": "0.1", "tick": 0, "actions": []any{}})
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeError), &e); err != nil || e.Code != protocol.ErrProtoVersion {
		t.Fatalf("version error=%+v err=%v", e, err)
	}
}

func TestHandshakeRefusals(t *testing.T) {
	_, url := startServer(t, nil)

	conn := dial(t, url)
	send(t, conn, map[string]any{"type": protocol.TypeState})
	var e protocol.ErrorMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeError), &e); err != nil || e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("non-hello error=%+v err=%v", e, err)
	}

	conn = dial(t, url)
	h := hello("carol")
	h.ProtocolVersion = "9.9"
	send(t, conn, h)
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeError), &e); err != nil || e.Code != protocol.ErrProtoVersion {
		t.Fatalf("version error=%+v err=%v", e, err)
	}

	conn = dial(t, url)
	send(t, conn, hello("bad\tname"))
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeError), &e); err != nil || e.Code != protocol.ErrIllegalName {
		t.Fatalf("name error=%+v err=%v", e, err)
	}
}

func TestVersionNegotiationAndRateWindow(t *testing.T) {
	h := hello("x")
	h.ProtocolVersion = "2.0"
	if versionOK(h) {
		t.Fatalf("2.0 alone should be refused")
	}
	h.SupportedVersions = []string{"2.0", protocol.Version}
	if !versionOK(h) {
		t.Fatalf("supported list should allow %s", protocol.Version)
	}

	w := newWindow(3)
	now := time.Unix(100, 0)
	for i := 0; i < 3; i++ {
		if !w.allow(now) {
			t.Fatalf("message %d refused", i)
		}
	}
	if w.allow(now.Add(500 * time.Millisecond)) {
		t.Fatalf("4th message in window allowed")
	}
	if !w.allow(now.Add(time.Second)) {
		t.Fatalf("new window refused")
	}
}
