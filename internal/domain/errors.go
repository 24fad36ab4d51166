package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code resolves to nothing.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when all four seats are taken.
	ErrRoomFull = errors.New("room is full")
	// ErrNotHost is returned when a non-host tries to start the match.
	ErrNotHost = errors.New("only the host can begin the match")
	// ErrBadPhase is returned when an operation is illegal for the room's phase.
	ErrBadPhase = errors.New("operation not valid in current phase")
	// ErrBadQuestionSet is returned when a begin request does not carry exactly ten question ids.
	ErrBadQuestionSet = errors.New("match requires exactly ten question ids")
	// ErrQuestionNotFound indicates question master data could not be loaded.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrRoomCodeExhausted indicates code generation kept colliding.
	ErrRoomCodeExhausted = errors.New("could not allocate a unique room code")
)
