package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-battle-coordinator/internal/battle"
	"quiz-battle-coordinator/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	codeLength     = 4
	longCodeLength = 6
	codeAttempts   = 16
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomStore is a Redis-aware implementation of battle.RoomRepository.
// Notes:
//   - Rooms themselves stay in a local in-memory map: a room lives
//     entirely in one process and its broadcast fan-out is in-process.
//   - Redis marks room-code liveness, claiming a code against other
//     instances sharing the same Redis and giving dashboards something
//     to look at.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.Mutex
	rooms  map[string]*battle.Room
	rnd    *rand.Rand
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*battle.Room),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *RoomStore) Create(identity, connID string, profile domain.Profile) (*battle.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.uniqueCodeLocked()
	if err != nil {
		return nil, err
	}
	room := battle.NewRoom(code, identity, connID, profile)
	s.rooms[code] = room
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(code), "1", s.ttl).Err()
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
		_ = s.client.Del(context.Background(), s.key(code)).Err()
	}
}

func (s *RoomStore) uniqueCodeLocked() (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := s.randomCode(codeLength)
		if s.available(code) {
			return code, nil
		}
	}
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := s.randomCode(longCodeLength)
		if s.available(code) {
			return code, nil
		}
	}
	return "", domain.ErrRoomCodeExhausted
}

func (s *RoomStore) available(code string) bool {
	if _, taken := s.rooms[code]; taken {
		return false
	}
	n, err := s.client.Exists(context.Background(), s.key(code)).Result()
	if err != nil {
		// redis being down must not block room creation; the local map
		// still guarantees per-process uniqueness
		return true
	}
	return n == 0
}

func (s *RoomStore) randomCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[s.rnd.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func (s *RoomStore) key(code string) string {
	return "battle:room:" + code
}
