package battle

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"math/rand"
)

// ShuffledOrder returns the displayed ordering of a question's choices:
// order[displayedPos] = canonical index. The permutation is seeded from
// room code + question id + question index, so every client derives the
// same layout on its own while different questions (and the same question
// in different rooms) come out in different orders.
func ShuffledOrder(roomCode, questionID string, index, choiceCount int) []int {
	if choiceCount <= 0 {
		return nil
	}
	h := fnv.New64a()
	_, _ = io.WriteString(h, roomCode)
	_, _ = h.Write([]byte{0})
	_, _ = io.WriteString(h, questionID)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(index))
	_, _ = h.Write(buf[:])

	rnd := rand.New(rand.NewSource(int64(h.Sum64())))
	return rnd.Perm(choiceCount)
}

// CanonicalChoice maps a displayed choice position back to the canonical
// index the question is scored against. The sentinel passes through, and
// anything out of range degrades to the sentinel rather than an error:
// a garbled submission scores as no answer, it never crashes the room.
func CanonicalChoice(roomCode, questionID string, index, choiceCount, displayed int) int {
	if displayed == NoAnswerChoice {
		return NoAnswerChoice
	}
	order := ShuffledOrder(roomCode, questionID, index, choiceCount)
	if displayed < 0 || displayed >= len(order) {
		return NoAnswerChoice
	}
	return order[displayed]
}
