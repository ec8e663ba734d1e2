package game

import "errors"

// Soft failures inside the tick loop are logged and absorbed; they never
// reach a UDP client. The HTTP layer maps them to status codes.
var (
	ErrLobbyExists    = errors.New("lobby already exists")
	ErrLobbyNotFound  = errors.New("lobby not found")
	ErrLobbyFull      = errors.New("lobby is full")
	ErrPlayerExists   = errors.New("player already exists")
	ErrPlayerNotFound = errors.New("player not found")
	ErrWeaponNotFound = errors.New("weapon not found")
	ErrInvalidDamage  = errors.New("invalid damage amount")
	ErrCannotReload   = errors.New("cannot reload")
)
