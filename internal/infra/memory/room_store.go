package memory

import (
	"math/rand"
	"sync"
	"time"

	"quiz-battle-coordinator/internal/battle"
	"quiz-battle-coordinator/internal/domain"
)

const (
	codeLength     = 4
	longCodeLength = 6
	codeAttempts   = 16
)

// codeAlphabet skips easily-confused characters (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomStore is an in-memory implementation of battle.RoomRepository.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*battle.Room
	rnd   *rand.Rand
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*battle.Room),
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *RoomStore) Create(identity, connID string, profile domain.Profile) (*battle.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, err := uniqueCode(s.rnd, func(code string) bool {
		_, taken := s.rooms[code]
		return taken
	})
	if err != nil {
		return nil, err
	}
	room := battle.NewRoom(code, identity, connID, profile)
	s.rooms[code] = room
	return room, nil
}

func (s *RoomStore) Get(code string) (*battle.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[code]; ok {
		room.Shutdown()
		delete(s.rooms, code)
	}
}

// uniqueCode draws short codes until one is free, falling back to a
// longer code after bounded retries. Codes become reusable as soon as
// the prior room is deleted.
func uniqueCode(rnd *rand.Rand, taken func(string) bool) (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := randomCode(rnd, codeLength)
		if !taken(code) {
			return code, nil
		}
	}
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := randomCode(rnd, longCodeLength)
		if !taken(code) {
			return code, nil
		}
	}
	return "", domain.ErrRoomCodeExhausted
}

func randomCode(rnd *rand.Rand, length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[rnd.Intn(len(codeAlphabet))]
	}
	return string(b)
}
