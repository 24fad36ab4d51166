package battle

import (
	"time"

	"quiz-battle-coordinator/internal/domain"
)

// Event is the closed set of broadcasts a room emits to its seats. The
// transport adapter switches exhaustively on the concrete type; a new
// event that is not handled there is a compile-visible gap, not a silent
// fall-through.
type Event interface {
	EventType() string
}

// RoomUpdated is sent after every successful join or leave so every
// client's lobby view stays consistent without incremental diffs.
type RoomUpdated struct {
	RoomCode     string            `json:"roomCode"`
	HostIdentity string            `json:"hostIdentity"`
	Seats        []domain.SeatView `json:"seats"`
}

func (RoomUpdated) EventType() string { return "roomUpdated" }

// RoomClosed is sent once when the host leaves; the room is gone after it.
type RoomClosed struct {
	RoomCode string `json:"roomCode"`
}

func (RoomClosed) EventType() string { return "roomClosed" }

// MatchBegun carries the full roster and the fixed question sequence.
type MatchBegun struct {
	RoomCode     string            `json:"roomCode"`
	HostIdentity string            `json:"hostIdentity"`
	Seats        []domain.SeatView `json:"seats"`
	QuestionIDs  []string          `json:"questionIds"`
}

func (MatchBegun) EventType() string { return "matchBegun" }

// QuestionOpened announces the current question and its server start time.
type QuestionOpened struct {
	Index     int       `json:"index"`
	StartTime time.Time `json:"startTime"`
}

func (QuestionOpened) EventType() string { return "questionOpened" }

// SeatAnswered tells the other seats someone locked in, without revealing
// the choice.
type SeatAnswered struct {
	Index        int    `json:"index"`
	SeatIndex    int    `json:"seatIndex"`
	SeatIdentity string `json:"seatIdentity"`
}

func (SeatAnswered) EventType() string { return "seatAnswered" }

// QuestionResolved carries the scored outcome of one question.
type QuestionResolved struct {
	domain.QuestionResult
}

func (QuestionResolved) EventType() string { return "questionResolved" }

// MatchFinished carries the final standings; exactly one seat has rank 1.
type MatchFinished struct {
	RoomCode  string            `json:"roomCode"`
	Standings []domain.Standing `json:"standings"`
}

func (MatchFinished) EventType() string { return "matchFinished" }
