package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"quiz-battle-coordinator/internal/battle"
	"quiz-battle-coordinator/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler is the protocol adapter: the only component that reads or
// writes wire-format payloads. Malformed frames are dropped, never
// surfaced as failures — a bad message must not crash the room.
type WSHandler struct {
	service  *battle.BattleService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *battle.BattleService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	Profile domain.Profile `json:"profile"`
}

type joinRoomPayload struct {
	RoomCode string         `json:"roomCode"`
	Profile  domain.Profile `json:"profile"`
}

type beginMatchPayload struct {
	QuestionIDs []string `json:"questionIds"`
}

// submitAnswerPayload uses pointers so a missing field is
// distinguishable from zero and the frame can be dropped defensively.
type submitAnswerPayload struct {
	Index           *int   `json:"index"`
	Choice          *int   `json:"choice"`
	RawChoice       *int   `json:"rawChoice,omitempty"`
	ClientTimestamp *int64 `json:"clientTimestamp,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type roomCreatedPayload struct {
	RoomCode string              `json:"roomCode"`
	Room     domain.RoomSnapshot `json:"room"`
}

type joinResultPayload struct {
	OK       bool                 `json:"ok"`
	Code     string               `json:"code,omitempty"` // ROOM_NOT_FOUND or ROOM_FULL
	Room     *domain.RoomSnapshot `json:"room,omitempty"`
	RoomCode string               `json:"roomCode,omitempty"`
}

// session tracks which room a connection currently occupies. It is
// shared between the read loop and the event forwarder, which clears it
// when the room closes underneath the connection.
type session struct {
	mu       sync.Mutex
	roomCode string
	cancel   func()
}

func (s *session) attach(code string, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomCode = code
	s.cancel = cancel
}

func (s *session) detach() {
	s.mu.Lock()
	cancel := s.cancel
	s.roomCode = ""
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *session) current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCode
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// coordinator use cases. The stable per-device identity key arrives as a
// query parameter; the connection id is minted per socket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		http.Error(w, "missing identity", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	sess := &session{}

	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var forwarders sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "createRoom":
			h.handleCreateRoom(r, sess, send, closeSignals, &forwarders, identity, connID, inbound.Payload)
		case "joinRoom":
			h.handleJoinRoom(r, sess, send, closeSignals, &forwarders, identity, connID, inbound.Payload)
		case "leaveRoom":
			if code := sess.current(); code != "" {
				h.service.Leave(r.Context(), code, identity)
				sess.detach()
			}
		case "beginMatch":
			h.handleBeginMatch(r, sess, identity, inbound.Payload)
		case "submitAnswer":
			h.handleSubmitAnswer(r, sess, identity, inbound.Payload)
		default:
			log.Printf("ws: dropping unknown message type %q", inbound.Type)
		}
	}

	// Transport confirmed the disconnect: same path as an explicit leave,
	// unless a newer connection already took over the seat.
	if code := sess.current(); code != "" {
		h.service.DropConnection(r.Context(), code, identity, connID)
	}

	close(closeSignals)
	sess.detach()
	forwarders.Wait()
	close(send)
	<-writerDone
}

func (h *WSHandler) handleCreateRoom(r *http.Request, sess *session, send chan outboundMessage[any], closeSignals chan struct{}, forwarders *sync.WaitGroup, identity, connID string, raw json.RawMessage) {
	if sess.current() != "" {
		return
	}
	var payload createRoomPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return
		}
	}
	room, err := h.service.CreateRoom(r.Context(), identity, connID, payload.Profile)
	if err != nil {
		log.Printf("create room failed: %v", err)
		return
	}
	h.subscribe(sess, send, closeSignals, forwarders, room.Code())
	send <- outboundMessage[any]{Type: "roomCreated", Payload: roomCreatedPayload{
		RoomCode: room.Code(),
		Room:     room.Snapshot(),
	}}
}

func (h *WSHandler) handleJoinRoom(r *http.Request, sess *session, send chan outboundMessage[any], closeSignals chan struct{}, forwarders *sync.WaitGroup, identity, connID string, raw json.RawMessage) {
	var payload joinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomCode == "" {
		return
	}
	if current := sess.current(); current != "" && current != payload.RoomCode {
		return
	}

	snap, err := h.service.Join(r.Context(), payload.RoomCode, identity, connID, payload.Profile)
	switch err {
	case nil:
	case domain.ErrRoomNotFound:
		send <- outboundMessage[any]{Type: "joinResult", Payload: joinResultPayload{OK: false, Code: "ROOM_NOT_FOUND"}}
		return
	case domain.ErrRoomFull:
		send <- outboundMessage[any]{Type: "joinResult", Payload: joinResultPayload{OK: false, Code: "ROOM_FULL"}}
		return
	default:
		log.Printf("join failed: %v", err)
		return
	}

	if sess.current() == "" {
		h.subscribe(sess, send, closeSignals, forwarders, payload.RoomCode)
	}
	send <- outboundMessage[any]{Type: "joinResult", Payload: joinResultPayload{OK: true, RoomCode: payload.RoomCode, Room: &snap}}
}

func (h *WSHandler) handleBeginMatch(r *http.Request, sess *session, identity string, raw json.RawMessage) {
	var payload beginMatchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	code := sess.current()
	if code == "" {
		return
	}
	// Fire-and-forget: a rejected begin (non-host, wrong phase, bad set)
	// is only observable through the absence of the matchBegun broadcast.
	if err := h.service.Begin(r.Context(), code, identity, payload.QuestionIDs); err != nil {
		log.Printf("begin match dropped: %v", err)
	}
}

func (h *WSHandler) handleSubmitAnswer(r *http.Request, sess *session, identity string, raw json.RawMessage) {
	var payload submitAnswerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if payload.Index == nil || payload.Choice == nil {
		return
	}
	code := sess.current()
	if code == "" {
		return
	}
	var clientTS int64
	if payload.ClientTimestamp != nil {
		clientTS = *payload.ClientTimestamp
	}
	h.service.SubmitAnswer(r.Context(), code, identity, *payload.Index, *payload.Choice, payload.RawChoice, clientTS)
}

func (h *WSHandler) subscribe(sess *session, send chan outboundMessage[any], closeSignals chan struct{}, forwarders *sync.WaitGroup, code string) {
	updates, cancel, err := h.service.Subscribe(code)
	if err != nil {
		log.Printf("subscribe failed: %v", err)
		return
	}
	sess.attach(code, cancel)

	forwarders.Add(1)
	go func() {
		defer forwarders.Done()
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				if msg, encoded := encodeEvent(ev); encoded {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
				if _, roomGone := ev.(battle.RoomClosed); roomGone {
					sess.detach()
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()
}

// encodeEvent maps the closed event union onto wire frames. Every event
// type is listed; an unhandled one is dropped loudly instead of going
// out half-serialized.
func encodeEvent(ev battle.Event) (outboundMessage[any], bool) {
	switch e := ev.(type) {
	case battle.RoomUpdated:
		return outboundMessage[any]{Type: e.EventType(), Payload: e}, true
	case battle.RoomClosed:
		return outboundMessage[any]{Type: e.EventType(), Payload: e}, true
	case battle.MatchBegun:
		return outboundMessage[any]{Type: e.EventType(), Payload: e}, true
	case battle.QuestionOpened:
		return outboundMessage[any]{Type: e.EventType(), Payload: e}, true
	case battle.SeatAnswered:
		return outboundMessage[any]{Type: e.EventType(), Payload: e}, true
	case battle.QuestionResolved:
		return outboundMessage[any]{Type: e.EventType(), Payload: e}, true
	case battle.MatchFinished:
		return outboundMessage[any]{Type: e.EventType(), Payload: e}, true
	default:
		log.Printf("ws: unencodable event %T", ev)
		return outboundMessage[any]{}, false
	}
}
