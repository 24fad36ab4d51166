package battle

import (
	"sort"
	"time"

	"quiz-battle-coordinator/internal/domain"
)

// CorrectAnswer pairs a seat with how long it took to answer correctly.
// Callers supply these in server receipt order; equal elapsed times keep
// that order, which is the only tie-break for speed prizes.
type CorrectAnswer struct {
	SeatIndex int
	Identity  string
	Elapsed   time.Duration
}

// AwardPointsBySpeed hands out 3/2/1 points to the fastest correct seats.
// Every seat in the input appears in the result, losers with zero, so the
// caller can apply it without nil checks.
func AwardPointsBySpeed(correct []CorrectAnswer) map[string]int {
	sorted := make([]CorrectAnswer, len(correct))
	copy(sorted, correct)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Elapsed < sorted[j].Elapsed
	})

	points := make(map[string]int, len(correct))
	for _, c := range correct {
		points[c.Identity] = 0
	}
	for i := 0; i < len(sorted) && i < len(speedAwards); i++ {
		points[sorted[i].Identity] = speedAwards[i]
	}
	return points
}

// SeatTally is one seat's accumulated match record.
type SeatTally struct {
	SeatIndex int
	Identity  string
	Profile   domain.Profile
	Points    int
	Correct   int
	TimeSum   time.Duration
}

// CalcFinalStandings ranks seats by points desc, correct count desc,
// correct-time sum asc, then seat index asc. The last key is total so the
// ordering is deterministic and rank 1 is always a single seat.
func CalcFinalStandings(tallies []SeatTally) []domain.Standing {
	rows := make([]SeatTally, len(tallies))
	copy(rows, tallies)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Correct != b.Correct {
			return a.Correct > b.Correct
		}
		if a.TimeSum != b.TimeSum {
			return a.TimeSum < b.TimeSum
		}
		return a.SeatIndex < b.SeatIndex
	})

	standings := make([]domain.Standing, len(rows))
	for i, row := range rows {
		rank := i + 1
		standings[i] = domain.Standing{
			Rank:      rank,
			SeatIndex: row.SeatIndex,
			Identity:  row.Identity,
			Profile:   row.Profile,
			Points:    row.Points,
			Correct:   row.Correct,
			TimeSum:   row.TimeSum,
			Coins:     CoinsForRank(rank),
			Won:       rank == 1,
		}
	}
	return standings
}
