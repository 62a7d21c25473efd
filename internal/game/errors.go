package game

import "errors"

// Session outcomes the gateway turns into client replies. None of them are fatal.
var (
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrAlreadyJoined      = errors.New("player already joined")
	ErrInvalidName        = errors.New("invalid username")
	ErrNameTaken          = errors.New("username already taken")
	ErrGameInProgress     = errors.New("game already in progress")
	ErrNotReady           = errors.New("lobby is not ready")
	ErrInvalidPlayerCount = errors.New("invalid number of players")
	ErrNotStarted         = errors.New("game has not started")
	ErrNoCurrentTurn      = errors.New("no player holds the turn")
	ErrInvalidHealth      = errors.New("max health must be positive")
	ErrCardNotInHand      = errors.New("card not in hand")
)
