package battle

import (
	"sort"
	"time"

	"quiz-battle-coordinator/internal/domain"
)

// beginMatch moves the room from lobby to playing and opens question 0.
// Only the host may start, and only from the lobby.
func (r *Room) beginMatch(requester string, questions []domain.Question, questionTime time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.ErrRoomNotFound
	}
	if requester != r.host {
		return domain.ErrNotHost
	}
	if r.phase != PhaseLobby {
		return domain.ErrBadPhase
	}
	if len(questions) != QuestionsPerMatch {
		return domain.ErrBadQuestionSet
	}

	r.questions = questions
	if questionTime > 0 {
		r.questionTime = questionTime
	}
	r.index = 0
	r.answers = make(map[int]map[string]answer)
	r.answerSeq = 0
	r.resolved = make(map[int]bool)
	for _, seat := range r.seats {
		if seat != nil {
			seat.points = 0
			seat.correct = 0
			seat.timeSum = 0
		}
	}
	r.phase = PhasePlaying

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	r.publishLocked(MatchBegun{
		RoomCode:     r.code,
		HostIdentity: r.host,
		Seats:        r.seatViewsLocked(),
		QuestionIDs:  ids,
	})

	r.openQuestionLocked(0)
	return nil
}

func (r *Room) openQuestionLocked(index int) {
	r.startedAt = r.now()
	r.publishLocked(QuestionOpened{Index: index, StartTime: r.startedAt})
	r.rearmTimerLocked(index)
}

// rearmTimerLocked always cancels the previous timer first, so the room
// never holds more than one live timer handle.
func (r *Room) rearmTimerLocked(index int) {
	r.stopTimerLocked()
	r.timerIndex = index
	r.timer = time.AfterFunc(r.questionTime, func() {
		r.onTimerFire(index)
	})
}

// onTimerFire is the timeout path. The index tag plus the phase check make
// a stale firing a no-op: if the all-answered path already advanced the
// room, this does nothing.
func (r *Room) onTimerFire(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != PhasePlaying || r.index != index || r.resolved[index] {
		return
	}

	bucket := r.bucketLocked(index)
	for _, seat := range r.seats {
		if seat == nil {
			continue
		}
		if _, ok := bucket[seat.Identity]; !ok {
			r.answerSeq++
			bucket[seat.Identity] = answer{
				choice:     NoAnswerChoice,
				answeredAt: r.startedAt.Add(r.questionTime),
				seq:        r.answerSeq,
			}
		}
	}
	r.resolveLocked(index, ReasonTimeout)
}

// submitAnswer records one seat's choice for the current question. Stale,
// premature, duplicate, or unseated submissions are dropped silently:
// they are expected outcomes of a client whose view of the room is
// slightly behind, not errors. The displayed choice is mapped back
// through the room's own shuffle; a client-supplied raw index never
// overrides that mapping.
func (r *Room) submitAnswer(identity string, index, choice int, rawChoice *int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != PhasePlaying || index != r.index {
		return
	}
	seat := r.seatLocked(identity)
	if seat == nil {
		return
	}
	bucket := r.bucketLocked(index)
	if _, ok := bucket[identity]; ok {
		return
	}

	q := r.questions[index]
	canonical := CanonicalChoice(r.code, q.ID, index, q.ChoiceCount, choice)
	_ = rawChoice // the shuffle above is the tie-breaking authority

	r.answerSeq++
	bucket[identity] = answer{choice: canonical, answeredAt: r.now(), seq: r.answerSeq}

	r.publishLocked(SeatAnswered{Index: index, SeatIndex: seat.Index, SeatIdentity: identity})

	if r.allAnsweredLocked() {
		r.resolveLocked(index, ReasonAllAnswered)
	}
}

func (r *Room) bucketLocked(index int) map[string]answer {
	bucket, ok := r.answers[index]
	if !ok {
		bucket = make(map[string]answer)
		r.answers[index] = bucket
	}
	return bucket
}

// allAnsweredLocked checks whether every currently occupied seat has a
// recorded answer for the current question. Occupancy is evaluated
// dynamically, so a mid-question departure cannot leave the match stuck.
func (r *Room) allAnsweredLocked() bool {
	bucket := r.answers[r.index]
	occupied := 0
	for _, seat := range r.seats {
		if seat == nil {
			continue
		}
		occupied++
		if _, ok := bucket[seat.Identity]; !ok {
			return false
		}
	}
	return occupied > 0
}

// resolveLocked scores one question exactly once, broadcasts the result,
// and either opens the next question or finishes the match. The resolved
// guard is what makes the all-answered and timer-fire paths safe to race:
// whichever runs first wins, the other is a no-op.
func (r *Room) resolveLocked(index int, reason string) {
	if r.resolved[index] || r.phase != PhasePlaying || r.index != index {
		return
	}
	r.resolved[index] = true
	r.stopTimerLocked()

	q := r.questions[index]
	bucket := r.answers[index]

	type recorded struct {
		seat *Seat
		ans  answer
	}
	ordered := make([]recorded, 0, MaxSeats)
	for _, seat := range r.seats {
		if seat == nil {
			continue
		}
		ans, ok := bucket[seat.Identity]
		if !ok {
			// a seat present at resolution without an answer scores as a skip
			ans = answer{choice: NoAnswerChoice, answeredAt: r.startedAt.Add(r.questionTime)}
		}
		ordered = append(ordered, recorded{seat: seat, ans: ans})
	}

	// receipt order for the speed ranking input
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ans.seq < ordered[j].ans.seq
	})

	correct := make([]CorrectAnswer, 0, len(ordered))
	for _, rec := range ordered {
		if rec.ans.choice != NoAnswerChoice && rec.ans.choice == q.CorrectIndex {
			correct = append(correct, CorrectAnswer{
				SeatIndex: rec.seat.Index,
				Identity:  rec.seat.Identity,
				Elapsed:   rec.ans.answeredAt.Sub(r.startedAt),
			})
		}
	}
	awarded := AwardPointsBySpeed(correct)

	entries := make([]domain.SeatAnswer, 0, len(ordered))
	scores := make(map[string]int, len(ordered))
	fullAwards := make(map[string]int, len(ordered))
	for _, seat := range r.seats {
		if seat == nil {
			continue
		}
		ans := bucket[seat.Identity]
		if _, ok := bucket[seat.Identity]; !ok {
			ans = answer{choice: NoAnswerChoice, answeredAt: r.startedAt.Add(r.questionTime)}
		}
		elapsed := ans.answeredAt.Sub(r.startedAt)
		isCorrect := ans.choice != NoAnswerChoice && ans.choice == q.CorrectIndex
		gained := awarded[seat.Identity]

		seat.points += gained
		if isCorrect {
			seat.correct++
			seat.timeSum += elapsed
		}

		entries = append(entries, domain.SeatAnswer{
			SeatIndex: seat.Index,
			Identity:  seat.Identity,
			Choice:    ans.choice,
			Correct:   isCorrect,
			Elapsed:   elapsed,
		})
		fullAwards[seat.Identity] = gained
		scores[seat.Identity] = seat.points
	}

	r.publishLocked(QuestionResolved{QuestionResult: domain.QuestionResult{
		Index:        index,
		Reason:       reason,
		CorrectIndex: q.CorrectIndex,
		Answers:      entries,
		Awarded:      fullAwards,
		Scores:       scores,
	}})

	r.index++
	if r.index >= len(r.questions) {
		r.phase = PhaseFinished
		r.publishLocked(MatchFinished{
			RoomCode:  r.code,
			Standings: CalcFinalStandings(r.talliesLocked()),
		})
		return
	}
	r.openQuestionLocked(r.index)
}

func (r *Room) talliesLocked() []SeatTally {
	tallies := make([]SeatTally, 0, MaxSeats)
	for _, seat := range r.seats {
		if seat == nil {
			continue
		}
		tallies = append(tallies, SeatTally{
			SeatIndex: seat.Index,
			Identity:  seat.Identity,
			Profile:   seat.Profile,
			Points:    seat.points,
			Correct:   seat.correct,
			TimeSum:   seat.timeSum,
		})
	}
	return tallies
}
