package battle

import (
	"sync"
	"time"

	"quiz-battle-coordinator/internal/domain"
)

// Phase is the room lifecycle: lobby until the host begins, playing while
// questions run, finished once standings are out. A finished room stays
// joinable for viewing results until it closes.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Seat is one occupied slot. Identity is the stable per-device key that
// survives reconnect; ConnID is the volatile connection identifier.
type Seat struct {
	Index    int
	Identity string
	ConnID   string
	Profile  domain.Profile

	points  int
	correct int
	timeSum time.Duration
}

type answer struct {
	choice     int // canonical index, or NoAnswerChoice
	answeredAt time.Time
	seq        int // server receipt order, the final speed tie-break
}

// Room owns one match's full state. All mutations are serialized behind
// mu; rooms are independent of each other. At most one countdown timer is
// armed per room, tagged with the question index it was scheduled for.
type Room struct {
	code string
	host string
	now  func() time.Time

	mu           sync.Mutex
	phase        Phase
	closed       bool
	seats        [MaxSeats]*Seat
	questions    []domain.Question
	questionTime time.Duration
	index        int
	startedAt    time.Time
	answers      map[int]map[string]answer
	answerSeq    int
	resolved     map[int]bool

	timer      *time.Timer
	timerIndex int

	subscribers map[chan Event]struct{}
}

// NewRoom creates a room with the creator as sole seat and host.
func NewRoom(code, hostIdentity, connID string, profile domain.Profile) *Room {
	return NewRoomWithClock(code, hostIdentity, connID, profile, time.Now)
}

// NewRoomWithClock is test-only for deterministic timestamps.
func NewRoomWithClock(code, hostIdentity, connID string, profile domain.Profile, now func() time.Time) *Room {
	r := &Room{
		code:         code,
		host:         hostIdentity,
		now:          now,
		phase:        PhaseLobby,
		questionTime: QuestionTime,
		answers:      make(map[int]map[string]answer),
		resolved:     make(map[int]bool),
		subscribers:  make(map[chan Event]struct{}),
	}
	r.seats[0] = &Seat{Index: 0, Identity: hostIdentity, ConnID: connID, Profile: profile}
	return r
}

// Code returns the room's join code.
func (r *Room) Code() string {
	return r.code
}

// HostIdentity returns the identity key of the seat that created the room.
func (r *Room) HostIdentity() string {
	return r.host
}

// Phase returns the current lifecycle phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Snapshot returns the lobby view broadcast after join/leave.
func (r *Room) Snapshot() domain.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() domain.RoomSnapshot {
	return domain.RoomSnapshot{
		RoomCode:     r.code,
		HostIdentity: r.host,
		Phase:        string(r.phase),
		Seats:        r.seatViewsLocked(),
	}
}

func (r *Room) seatViewsLocked() []domain.SeatView {
	views := make([]domain.SeatView, 0, MaxSeats)
	for _, seat := range r.seats {
		if seat == nil {
			continue
		}
		views = append(views, domain.SeatView{
			Index:    seat.Index,
			Identity: seat.Identity,
			Profile:  seat.Profile,
		})
	}
	return views
}

func (r *Room) seatLocked(identity string) *Seat {
	for _, seat := range r.seats {
		if seat != nil && seat.Identity == identity {
			return seat
		}
	}
	return nil
}

func (r *Room) occupiedLocked() int {
	n := 0
	for _, seat := range r.seats {
		if seat != nil {
			n++
		}
	}
	return n
}

// join seats the identity, reusing its existing seat on rejoin. Rejoin is
// the dedup mechanism: a reconnecting device replaces its connection and
// profile in place instead of occupying a second seat.
func (r *Room) join(identity, connID string, profile domain.Profile) (domain.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}

	if seat := r.seatLocked(identity); seat != nil {
		seat.ConnID = connID
		seat.Profile = profile
		snap := r.snapshotLocked()
		r.publishLocked(RoomUpdated{RoomCode: r.code, HostIdentity: r.host, Seats: snap.Seats})
		return snap, nil
	}

	slot := -1
	for i, seat := range r.seats {
		if seat == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return domain.RoomSnapshot{}, domain.ErrRoomFull
	}

	r.seats[slot] = &Seat{Index: slot, Identity: identity, ConnID: connID, Profile: profile}
	snap := r.snapshotLocked()
	r.publishLocked(RoomUpdated{RoomCode: r.code, HostIdentity: r.host, Seats: snap.Seats})
	return snap, nil
}

// leave removes the seat. Host departure closes the room unconditionally;
// there is no host migration. A non-host departure during playing
// re-evaluates all-answered so the match cannot get stuck waiting on a
// seat that no longer exists. Returns true when the room should be
// deleted from the store.
func (r *Room) leave(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat := r.seatLocked(identity)
	if seat == nil {
		return false
	}
	return r.removeSeatLocked(seat)
}

// leaveIfConn removes the seat only while connID is still its live
// connection. A stale socket's teardown after the device already
// reconnected must not evict the reclaimed seat.
func (r *Room) leaveIfConn(identity, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat := r.seatLocked(identity)
	if seat == nil || seat.ConnID != connID {
		return false
	}
	return r.removeSeatLocked(seat)
}

func (r *Room) removeSeatLocked(seat *Seat) bool {
	if seat.Identity == r.host {
		r.closeLocked()
		return true
	}

	r.seats[seat.Index] = nil
	if r.occupiedLocked() == 0 {
		r.closeLocked()
		return true
	}

	r.publishLocked(RoomUpdated{RoomCode: r.code, HostIdentity: r.host, Seats: r.seatViewsLocked()})

	if r.phase == PhasePlaying && r.allAnsweredLocked() {
		r.resolveLocked(r.index, ReasonAllAnswered)
	}
	return false
}

func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	r.stopTimerLocked()
	r.publishLocked(RoomClosed{RoomCode: r.code})
}

// Shutdown cancels any armed timer; the store calls it on delete.
func (r *Room) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	r.closed = true
}

func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Subscribe returns a channel of room events. The caller must invoke the
// returned cancel function to avoid leaks. Sends never block the room:
// a subscriber that falls behind loses its oldest pending event.
func (r *Room) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Room) publishLocked(ev Event) {
	for ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
