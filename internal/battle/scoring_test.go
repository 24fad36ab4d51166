package battle_test

import (
	"testing"
	"time"

	"quiz-battle-coordinator/internal/battle"
	"quiz-battle-coordinator/internal/domain"
)

func TestAwardPointsBySpeed(t *testing.T) {
	points := battle.AwardPointsBySpeed([]battle.CorrectAnswer{
		{SeatIndex: 0, Identity: "A", Elapsed: 1000 * time.Millisecond},
		{SeatIndex: 1, Identity: "B", Elapsed: 500 * time.Millisecond},
		{SeatIndex: 2, Identity: "C", Elapsed: 2000 * time.Millisecond},
		{SeatIndex: 3, Identity: "D", Elapsed: 1500 * time.Millisecond},
	})

	want := map[string]int{"B": 3, "A": 2, "D": 1, "C": 0}
	if len(points) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(points))
	}
	for identity, pts := range want {
		if points[identity] != pts {
			t.Fatalf("expected %s=%d, got %d", identity, pts, points[identity])
		}
	}
}

func TestAwardPointsBySpeedFewerThanThreeCorrect(t *testing.T) {
	points := battle.AwardPointsBySpeed([]battle.CorrectAnswer{
		{Identity: "A", Elapsed: 700 * time.Millisecond},
	})
	if points["A"] != 3 {
		t.Fatalf("expected sole correct seat to take 3 points, got %d", points["A"])
	}

	if got := battle.AwardPointsBySpeed(nil); len(got) != 0 {
		t.Fatalf("expected no awards for no correct answers, got %v", got)
	}
}

func TestAwardPointsBySpeedTieKeepsReceiptOrder(t *testing.T) {
	// equal elapsed times: the input order is server receipt order and wins
	points := battle.AwardPointsBySpeed([]battle.CorrectAnswer{
		{Identity: "first", Elapsed: time.Second},
		{Identity: "second", Elapsed: time.Second},
	})
	if points["first"] != 3 || points["second"] != 2 {
		t.Fatalf("expected receipt order to break the tie, got %v", points)
	}
}

func TestCalcFinalStandingsTieBreaks(t *testing.T) {
	cases := []struct {
		name    string
		tallies []battle.SeatTally
		winner  string
	}{
		{
			name: "points decide",
			tallies: []battle.SeatTally{
				{SeatIndex: 0, Identity: "low", Points: 10},
				{SeatIndex: 1, Identity: "high", Points: 12},
			},
			winner: "high",
		},
		{
			name: "correct count breaks equal points",
			tallies: []battle.SeatTally{
				{SeatIndex: 0, Identity: "fewer", Points: 10, Correct: 4},
				{SeatIndex: 1, Identity: "more", Points: 10, Correct: 6},
			},
			winner: "more",
		},
		{
			name: "correct-time sum breaks equal points and count",
			tallies: []battle.SeatTally{
				{SeatIndex: 0, Identity: "slow", Points: 10, Correct: 5, TimeSum: 40 * time.Second},
				{SeatIndex: 1, Identity: "fast", Points: 10, Correct: 5, TimeSum: 30 * time.Second},
			},
			winner: "fast",
		},
		{
			name: "seat index is the final tie-break",
			tallies: []battle.SeatTally{
				{SeatIndex: 1, Identity: "later", Points: 10, Correct: 5, TimeSum: 30 * time.Second},
				{SeatIndex: 0, Identity: "earlier", Points: 10, Correct: 5, TimeSum: 30 * time.Second},
			},
			winner: "earlier",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			standings := battle.CalcFinalStandings(tc.tallies)
			if len(standings) != 2 {
				t.Fatalf("expected 2 standings, got %d", len(standings))
			}
			if standings[0].Rank != 1 || standings[0].Identity != tc.winner {
				t.Fatalf("expected %s at rank 1, got %+v", tc.winner, standings[0])
			}
			if !standings[0].Won || standings[1].Won {
				t.Fatalf("expected exactly the rank-1 seat to win")
			}
		})
	}
}

func TestCalcFinalStandingsCoinRewards(t *testing.T) {
	standings := battle.CalcFinalStandings([]battle.SeatTally{
		{SeatIndex: 0, Identity: "p1", Points: 30},
		{SeatIndex: 1, Identity: "p2", Points: 20},
		{SeatIndex: 2, Identity: "p3", Points: 10},
		{SeatIndex: 3, Identity: "p4", Points: 0},
	})

	wantCoins := []int{30, 20, 10, 0}
	for i, std := range standings {
		if std.Coins != wantCoins[i] {
			t.Fatalf("rank %d: expected %d coins, got %d", std.Rank, wantCoins[i], std.Coins)
		}
	}
}

func TestStandingsCarryProfiles(t *testing.T) {
	standings := battle.CalcFinalStandings([]battle.SeatTally{
		{SeatIndex: 0, Identity: "p1", Profile: domain.Profile{Name: "Alice"}, Points: 3},
	})
	if standings[0].Profile.Name != "Alice" {
		t.Fatalf("expected profile to pass through, got %+v", standings[0].Profile)
	}
}
