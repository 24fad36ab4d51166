package battle

import (
	"context"
	"time"

	"quiz-battle-coordinator/internal/domain"
)

// RoomRepository abstracts how active rooms are stored (in-memory, Redis-
// marked, etc). Create owns room code generation and uniqueness.
type RoomRepository interface {
	Create(identity, connID string, profile domain.Profile) (*Room, error)
	Get(code string) (*Room, bool)
	Delete(code string)
}

// QuestionRepository loads per-question scoring metadata (from
// cache/backing store).
type QuestionRepository interface {
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
}

// BattleService contains the coordinator use cases: room lifecycle and
// the match state machine entry points.
type BattleService struct {
	rooms        RoomRepository
	questions    QuestionRepository
	questionTime time.Duration
}

func NewBattleService(rooms RoomRepository, questions QuestionRepository) *BattleService {
	return &BattleService{rooms: rooms, questions: questions, questionTime: QuestionTime}
}

// NewBattleServiceWithTimer overrides the per-question countdown, for
// tests and config.
func NewBattleServiceWithTimer(rooms RoomRepository, questions QuestionRepository, questionTime time.Duration) *BattleService {
	s := NewBattleService(rooms, questions)
	if questionTime > 0 {
		s.questionTime = questionTime
	}
	return s
}

// CreateRoom allocates a room with the caller as host and sole seat.
func (s *BattleService) CreateRoom(_ context.Context, identity, connID string, profile domain.Profile) (*Room, error) {
	return s.rooms.Create(identity, connID, profile)
}

// Join seats the identity in the room, idempotently per identity: a
// reconnecting device replaces its connection and profile in place.
func (s *BattleService) Join(_ context.Context, code, identity, connID string, profile domain.Profile) (domain.RoomSnapshot, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}
	return room.join(identity, connID, profile)
}

// Leave removes the seat; the same path serves explicit leave and
// confirmed connection loss. Host departure deletes the room.
func (s *BattleService) Leave(_ context.Context, code, identity string) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return
	}
	if room.leave(identity) {
		s.rooms.Delete(code)
	}
}

// DropConnection handles a transport-confirmed disconnect. It behaves
// like Leave, except the seat survives when a newer connection has
// already reclaimed it (idempotent rejoin by identity).
func (s *BattleService) DropConnection(_ context.Context, code, identity, connID string) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return
	}
	if room.leaveIfConn(identity, connID) {
		s.rooms.Delete(code)
	}
}

// Begin starts the match. Host-only, lobby-only, exactly ten question
// ids; scoring metadata for every id is loaded up front so a mid-match
// lookup can never fail.
func (s *BattleService) Begin(ctx context.Context, code, requester string, questionIDs []string) error {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if len(questionIDs) != QuestionsPerMatch {
		return domain.ErrBadQuestionSet
	}
	questions := make([]domain.Question, 0, len(questionIDs))
	for _, id := range questionIDs {
		q, err := s.questions.GetQuestion(ctx, id)
		if err != nil {
			return err
		}
		questions = append(questions, q)
	}
	return room.beginMatch(requester, questions, s.questionTime)
}

// SubmitAnswer records a seat's answer for the given question index.
// The server's own receipt time is authoritative for speed ranking;
// clientTimestamp is accepted on the wire but never trusted. Invalid
// submissions are dropped without error.
func (s *BattleService) SubmitAnswer(_ context.Context, code, identity string, index, choice int, rawChoice *int, clientTimestamp int64) {
	_ = clientTimestamp
	room, ok := s.rooms.Get(code)
	if !ok {
		return
	}
	room.submitAnswer(identity, index, choice, rawChoice)
}

// Subscribe returns a channel of room broadcasts. The caller must invoke
// the returned cancel function to avoid leaks.
func (s *BattleService) Subscribe(code string) (<-chan Event, func(), error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := room.Subscribe()
	return ch, cancel, nil
}
