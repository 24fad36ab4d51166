package domain

import "time"

// Profile is the display profile a client self-reports on join. It is
// shown to other players as-is and never validated.
type Profile struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Avatar string `json:"avatar"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

// SeatView is the broadcast-friendly view of one occupied seat.
type SeatView struct {
	Index    int     `json:"index"`
	Identity string  `json:"identity"`
	Profile  Profile `json:"profile"`
}

// RoomSnapshot captures the lobby state sent after every join/leave.
type RoomSnapshot struct {
	RoomCode     string     `json:"roomCode"`
	HostIdentity string     `json:"hostIdentity"`
	Phase        string     `json:"phase"`
	Seats        []SeatView `json:"seats"`
}

// SeatAnswer is one seat's recorded answer for a resolved question.
// Choice is the canonical (unshuffled) index; a seat that never answered
// before the timer fired carries the no-answer sentinel.
type SeatAnswer struct {
	SeatIndex int           `json:"seatIndex"`
	Identity  string        `json:"identity"`
	Choice    int           `json:"choice"`
	Correct   bool          `json:"correct"`
	Elapsed   time.Duration `json:"elapsedMs"`
}

// QuestionResult is derived once per question and never recomputed.
type QuestionResult struct {
	Index        int            `json:"index"`
	Reason       string         `json:"reason"` // "all_answered" or "timeout"
	CorrectIndex int            `json:"correctIndex"`
	Answers      []SeatAnswer   `json:"perSeatAnswers"`
	Awarded      map[string]int `json:"pointsAwarded"`    // identity -> points this question
	Scores       map[string]int `json:"cumulativeScores"` // identity -> total points
}

// Standing is one row of the final ranking. Rank 1 is the sole winner.
type Standing struct {
	Rank      int           `json:"rank"`
	SeatIndex int           `json:"seatIndex"`
	Identity  string        `json:"identity"`
	Profile   Profile       `json:"profile"`
	Points    int           `json:"points"`
	Correct   int           `json:"correct"`
	TimeSum   time.Duration `json:"timeSumMs"`
	Coins     int           `json:"coins"`
	Won       bool          `json:"won"`
}

// Question is the per-question master data the coordinator needs for
// scoring: the canonical correct index and the choice count. Prompt and
// choice text stay client-side master data.
type Question struct {
	ID           string `json:"id"`
	CorrectIndex int    `json:"correctIndex"`
	ChoiceCount  int    `json:"choiceCount"`
}
