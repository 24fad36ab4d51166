package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-battle-coordinator/internal/battle"
	"quiz-battle-coordinator/internal/domain"
	"quiz-battle-coordinator/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	rooms := memory.NewRoomStore()
	repo := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleQuestions()), time.Minute)
	service := battle.NewBattleServiceWithTimer(rooms, repo, 5*time.Second)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, identity string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?identity=" + identity
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", identity, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	server := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial without identity to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

func TestWebSocketMatchFlow(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server, "host")
	if err := host.WriteJSON(map[string]any{
		"type":    "createRoom",
		"payload": map[string]any{"profile": map[string]any{"name": "Alice"}},
	}); err != nil {
		t.Fatalf("write createRoom: %v", err)
	}

	_, created := readNext(host, t, "roomCreated")
	roomCode, _ := created["roomCode"].(string)
	if roomCode == "" {
		t.Fatalf("expected a room code in %v", created)
	}

	guest := dial(t, server, "guest")
	if err := guest.WriteJSON(map[string]any{
		"type":    "joinRoom",
		"payload": map[string]any{"roomCode": roomCode, "profile": map[string]any{"name": "Bob"}},
	}); err != nil {
		t.Fatalf("write joinRoom: %v", err)
	}

	_, joined := readNext(guest, t, "joinResult")
	if ok, _ := joined["ok"].(bool); !ok {
		t.Fatalf("expected join to succeed, got %v", joined)
	}

	// the host's lobby view updates when the guest arrives
	_, updated := readNext(host, t, "roomUpdated")
	if seats, _ := updated["seats"].([]any); len(seats) != 2 {
		t.Fatalf("expected 2 seats in roomUpdated, got %v", updated)
	}

	ids := make([]string, battle.QuestionsPerMatch)
	for i := range ids {
		ids[i] = fmt.Sprintf("q-%03d", i+1)
	}
	if err := host.WriteJSON(map[string]any{
		"type":    "beginMatch",
		"payload": map[string]any{"questionIds": ids},
	}); err != nil {
		t.Fatalf("write beginMatch: %v", err)
	}

	readNext(host, t, "matchBegun")
	readNext(guest, t, "matchBegun")
	_, opened := readNext(host, t, "questionOpened")
	if idx, _ := opened["index"].(float64); idx != 0 {
		t.Fatalf("expected question 0 to open, got %v", opened)
	}
	readNext(guest, t, "questionOpened")

	if err := host.WriteJSON(map[string]any{
		"type":    "submitAnswer",
		"payload": map[string]any{"index": 0, "choice": 1},
	}); err != nil {
		t.Fatalf("write submitAnswer: %v", err)
	}

	// both seats see the lock-in without the choice itself
	_, answered := readNext(guest, t, "seatAnswered")
	if identity, _ := answered["seatIdentity"].(string); identity != "host" {
		t.Fatalf("expected seatAnswered for host, got %v", answered)
	}
	if _, leaked := answered["choice"]; leaked {
		t.Fatalf("seatAnswered must not reveal the choice: %v", answered)
	}
	readNext(host, t, "seatAnswered")

	if err := guest.WriteJSON(map[string]any{
		"type":    "submitAnswer",
		"payload": map[string]any{"index": 0, "choice": 2},
	}); err != nil {
		t.Fatalf("write submitAnswer: %v", err)
	}

	for _, conn := range []*websocket.Conn{host, guest} {
		typ, resolved := readNextOfType(conn, t, "questionResolved")
		if typ != "questionResolved" {
			t.Fatalf("expected questionResolved, got %s", typ)
		}
		if reason, _ := resolved["reason"].(string); reason != battle.ReasonAllAnswered {
			t.Fatalf("expected all_answered, got %v", resolved)
		}
	}
}

func TestWebSocketJoinUnknownRoom(t *testing.T) {
	server := newTestServer(t)

	conn := dial(t, server, "guest")
	if err := conn.WriteJSON(map[string]any{
		"type":    "joinRoom",
		"payload": map[string]any{"roomCode": "ZZZZ"},
	}); err != nil {
		t.Fatalf("write joinRoom: %v", err)
	}

	_, result := readNext(conn, t, "joinResult")
	if ok, _ := result["ok"].(bool); ok {
		t.Fatalf("expected join to fail, got %v", result)
	}
	if code, _ := result["code"].(string); code != "ROOM_NOT_FOUND" {
		t.Fatalf("expected ROOM_NOT_FOUND, got %v", result)
	}
}

func TestWebSocketHostDisconnectClosesRoom(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server, "host")
	if err := host.WriteJSON(map[string]any{"type": "createRoom"}); err != nil {
		t.Fatalf("write createRoom: %v", err)
	}
	_, created := readNext(host, t, "roomCreated")
	roomCode, _ := created["roomCode"].(string)

	guest := dial(t, server, "guest")
	if err := guest.WriteJSON(map[string]any{
		"type":    "joinRoom",
		"payload": map[string]any{"roomCode": roomCode},
	}); err != nil {
		t.Fatalf("write joinRoom: %v", err)
	}
	readNext(guest, t, "joinResult")

	host.Close()

	typ, _ := readNextOfType(guest, t, "roomClosed")
	if typ != "roomClosed" {
		t.Fatalf("expected roomClosed after host disconnect, got %s", typ)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

// readNextOfType skips intervening broadcasts until the wanted type shows up.
func readNextOfType(conn *websocket.Conn, t *testing.T, want string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 16; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == want {
			return typ, payload
		}
	}
	t.Fatalf("message %q never arrived", want)
	return "", nil
}

func sampleQuestions() map[string]domain.Question {
	questions := make(map[string]domain.Question, battle.QuestionsPerMatch)
	for i := 0; i < battle.QuestionsPerMatch; i++ {
		id := fmt.Sprintf("q-%03d", i+1)
		questions[id] = domain.Question{ID: id, CorrectIndex: i % 4, ChoiceCount: 4}
	}
	return questions
}
