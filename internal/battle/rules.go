package battle

import "time"

// Match rules. Fixed for every room: ten questions, twenty seconds each,
// speed prizes 3/2/1 for the fastest correct seats, coins 30/20/10/0 by
// final rank, rank 1 is the sole winner.
const (
	MaxSeats          = 4
	QuestionsPerMatch = 10
	QuestionTime      = 20 * time.Second

	// NoAnswerChoice marks a seat that skipped or ran out of time. It never
	// counts as correct, whatever the canonical correct index is.
	NoAnswerChoice = -1
)

const (
	ReasonAllAnswered = "all_answered"
	ReasonTimeout     = "timeout"
)

var speedAwards = [...]int{3, 2, 1}

var coinRewardByRank = map[int]int{1: 30, 2: 20, 3: 10}

// CoinsForRank returns the coin reward for a final rank; ranks outside the
// table get nothing.
func CoinsForRank(rank int) int {
	return coinRewardByRank[rank]
}
