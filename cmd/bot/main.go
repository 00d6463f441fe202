package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"voxelguard.ai/internal/protocol"
)

// A bot answers every OBS with one STATE. Modes other than "walker"
// deliberately misbehave so detections can be watched end to end.
func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "actor name")
		mode  = flag.String("mode", "walker", "walker|teleport|spin|reach|phase|gamemode")
		token = flag.String("token", "", "operator token (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	b, ok := behaviours[*mode]
	if !ok {
		logger.Fatalf("unknown mode %q", *mode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ActorName:       *name,
		InputMode:       "keyboard_mouse",
	}
	if *token != "" {
		hello.Auth = &protocol.Auth{Token: *token}
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var timeMs int64
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v", err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME actor_id=%s session=%s tick_rate=%d spawn=%v", w.ActorID, w.SessionID, w.WorldParams.TickRateHz, w.Spawn)

		case protocol.TypeObs:
			var obs protocol.ObsMsg
			if err := json.Unmarshal(msg, &obs); err != nil {
				continue
			}
			for _, e := range obs.Events {
				if e["type"] == protocol.TypeActionResult && e["ok"] != true {
					logger.Printf("tick=%d action %v refused: %v %v", obs.Tick, e["ref"], e["code"], e["message"])
				}
			}
			timeMs += 50
			st, act := b(&obs)
			st.Type, st.ProtocolVersion = protocol.TypeState, protocol.Version
			st.Tick, st.TimeMs = obs.Tick+1, timeMs
			if err := conn.WriteJSON(st); err != nil {
				return
			}
			if act != nil {
				act.Type, act.ProtocolVersion, act.Tick = protocol.TypeAct, protocol.Version, obs.Tick+1
				_ = conn.WriteJSON(act)
			}

		case protocol.TypeCorrection:
			var c protocol.CorrectionMsg
			if err := json.Unmarshal(msg, &c); err != nil {
				continue
			}
			logger.Printf("tick=%d CORRECTION %s", c.Tick, c.Kind)

		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(msg, &e)
			logger.Printf("ERROR %s %s", e.Code, e.Message)
		}
	}
}

type behaviour func(obs *protocol.ObsMsg) (protocol.StateMsg, *protocol.ActMsg)

var behaviours = map[string]behaviour{
	"walker":   walker,
	"teleport": teleporter,
	"spin":     spinner,
	"reach":    farReacher,
	"phase":    phaser,
	"gamemode": gamemodeSwitcher,
}

// walker paces back and forth along x at walking speed.
func walker(obs *protocol.ObsMsg) (protocol.StateMsg, *protocol.ActMsg) {
	dir := 1.0
	if (obs.Tick/100)%2 == 1 {
		dir = -1
	}
	v := 4.3 * dir
	pos := obs.Self.Pos
	pos[0] += v / 20
	return protocol.StateMsg{
		Pos:    pos,
		Vel:    [3]float64{v, 0, 0},
		Rot:    protocol.Rotation{Yaw: -90 * dir},
		Status: protocol.Status{OnGround: true},
	}, nil
}

func teleporter(obs *protocol.ObsMsg) (protocol.StateMsg, *protocol.ActMsg) {
	st, _ := walker(obs)
	if obs.Tick%40 == 0 {
		st.Pos[0] += 12
	}
	return st, nil
}

// spinner snaps its view around faster than a hand can.
func spinner(obs *protocol.ObsMsg) (protocol.StateMsg, *protocol.ActMsg) {
	st, _ := walker(obs)
	st.Rot.Yaw = math.Mod(obs.Self.Rot.Yaw+170, 360)
	return st, nil
}

func farReacher(obs *protocol.ObsMsg) (protocol.StateMsg, *protocol.ActMsg) {
	st, _ := walker(obs)
	if obs.Tick%40 != 0 {
		return st, nil
	}
	p := obs.Self.Pos
	target := [3]int{int(math.Floor(p[0])), int(math.Floor(p[1])) - 1, int(math.Floor(p[2])) + 20}
	return st, &protocol.ActMsg{Actions: []protocol.ActionReq{
		{ID: fmt.Sprintf("far_%d", obs.Tick), Type: protocol.ActBreak, BlockPos: target},
	}}
}

// phaser claims to move 3 blocks along z each 60 ticks without any velocity.
func phaser(obs *protocol.ObsMsg) (protocol.StateMsg, *protocol.ActMsg) {
	st := protocol.StateMsg{Pos: obs.Self.Pos, Status: protocol.Status{OnGround: true}}
	if obs.Tick%60 == 0 {
		st.Pos[2] += 3
		st.Vel = [3]float64{0, 0, 3}
	}
	return st, nil
}

func gamemodeSwitcher(obs *protocol.ObsMsg) (protocol.StateMsg, *protocol.ActMsg) {
	st := protocol.StateMsg{Pos: obs.Self.Pos, Status: protocol.Status{OnGround: true}}
	if obs.Tick%100 != 0 {
		return st, nil
	}
	to := "creative"
	if obs.Self.GameMode == "creative" {
		to = "survival"
	}
	return st, &protocol.ActMsg{Actions: []protocol.ActionReq{
		{ID: fmt.Sprintf("gm_%d", obs.Tick), Type: protocol.ActGameMode, GameMode: to},
	}}
}
