package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelguard.ai/internal/protocol"
	"voxelguard.ai/internal/sim/world"
)

// Grants maps a handshake to server-side tags (operator lists, tokens).
// Clients never choose their own tags.
type Grants func(hello protocol.HelloMsg) []string

type Options struct {
	Logger *log.Logger
	Grants Grants
	// MaxMsgsPerSec caps inbound STATE+ACT per connection; 0 means 60.
	MaxMsgsPerSec int
}

type Server struct {
	world     *world.World
	log       *log.Logger
	validator *protocol.Validator
	grants    Grants
	maxRate   int

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, o Options) (*Server, error) {
	v, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}
	if o.MaxMsgsPerSec <= 0 {
		o.MaxMsgsPerSec = 60
	}
	s := &Server{
		world:     w,
		log:       o.Logger,
		validator: v,
		grants:    o.Grants,
		maxRate:   o.MaxMsgsPerSec,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s, nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		actorID, out := s.handshake(conn)
		if actorID == "" {
			return
		}
		s.logf("session open actor=%s remote=%s", actorID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		sess := &session{actorID: actorID, out: out, limit: newWindow(s.maxRate)}
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.route(sess, msg)
		}

		s.world.Leave() <- actorID
		s.logf("session closed actor=%s", actorID)
	}
}

type session struct {
	actorID   string
	out       chan []byte
	lastState uint64
	hasState  bool
	limit     *window
}

// route validates one inbound message and hands it to the world. Problems
// are answered with an ERROR on the session's own queue.
func (s *Server) route(sess *session, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.reject(sess, protocol.ErrProtoBadRequest, "malformed json")
		return
	}
	if base.Type != protocol.TypeState && base.Type != protocol.TypeAct {
		s.reject(sess, protocol.ErrProtoBadRequest, "unexpected type "+base.Type)
		return
	}
	if base.ProtocolVersion != protocol.Version {
		s.reject(sess, protocol.ErrProtoVersion, "protocol_version must be "+protocol.Version)
		return
	}
	if !sess.limit.allow(time.Now()) {
		s.reject(sess, protocol.ErrRateLimit, "too many messages")
		return
	}
	if err := s.validator.Validate(base.Type, msg); err != nil {
		s.reject(sess, protocol.ErrProtoBadRequest, err.Error())
		return
	}

	switch base.Type {
	case protocol.TypeState:
		var st protocol.StateMsg
		if err := json.Unmarshal(msg, &st); err != nil {
			s.reject(sess, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		if sess.hasState && st.Tick < sess.lastState {
			s.reject(sess, protocol.ErrProtoOutOfOrder, "state tick went backwards")
			return
		}
		sess.lastState, sess.hasState = st.Tick, true
		select {
		case s.world.States() <- world.StateEnvelope{ActorID: sess.actorID, State: st}:
		default:
			s.reject(sess, protocol.ErrWorldBusy, "state queue full")
		}
	case protocol.TypeAct:
		var act protocol.ActMsg
		if err := json.Unmarshal(msg, &act); err != nil {
			s.reject(sess, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		select {
		case s.world.Inbox() <- world.ActionEnvelope{ActorID: sess.actorID, Act: act}:
		default:
			s.reject(sess, protocol.ErrWorldBusy, "action queue full")
		}
	}
}

func (s *Server) reject(sess *session, code, message string) {
	b, err := json.Marshal(errorMsg(code, message))
	if err != nil {
		return
	}
	select {
	case sess.out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (actorID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.refuse(conn, protocol.ErrProtoBadRequest, "expected HELLO")
		return "", nil
	}
	if err := s.validator.Validate(protocol.TypeHello, msg); err != nil {
		s.refuse(conn, protocol.ErrProtoBadRequest, err.Error())
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		s.refuse(conn, protocol.ErrProtoBadRequest, err.Error())
		return "", nil
	}
	if !versionOK(hello) {
		s.refuse(conn, protocol.ErrProtoVersion, "supported: "+protocol.Version)
		return "", nil
	}

	var tags []string
	if s.grants != nil {
		tags = s.grants(hello)
	}
	out = make(chan []byte, 64)
	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{
		Name:      hello.ActorName,
		InputMode: hello.InputMode,
		Tags:      tags,
		Out:       out,
		Resp:      respCh,
	}
	resp := <-respCh
	if resp.Code != "" {
		s.logf("join refused name=%q code=%s", hello.ActorName, resp.Code)
		s.refuse(conn, resp.Code, resp.Message)
		return "", nil
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- resp.Welcome.ActorID
		return "", nil
	}
	return resp.Welcome.ActorID, out
}

// refuse sends an ERROR then closes with a policy violation.
func (s *Server) refuse(conn *websocket.Conn, code, message string) {
	_ = writeJSON(conn, errorMsg(code, message))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code),
		time.Now().Add(time.Second))
}

func versionOK(h protocol.HelloMsg) bool {
	if h.ProtocolVersion == protocol.Version {
		return true
	}
	for _, v := range h.SupportedVersions {
		if strings.TrimSpace(v) == protocol.Version {
			return true
		}
	}
	return false
}

func errorMsg(code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: message}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// window is a fixed one-second message budget.
type window struct {
	max   int
	start time.Time
	n     int
}

func newWindow(max int) *window { return &window{max: max} }

func (w *window) allow(now time.Time) bool {
	if now.Sub(w.start) >= time.Second {
		w.start = now
		w.n = 0
	}
	w.n++
	return w.n <= w.max
}
