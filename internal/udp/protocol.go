// Package udp is the gameplay wire edge: it parses inbound datagrams into
// lobby commands, enforces per-address rate limits, and fans authoritative
// records back out over the shared socket.
package udp

import (
	"encoding/json"
	"errors"

	"github.com/lambdv/gungame/internal/game"
)

// Inbound type discriminators the server accepts.
const (
	TypeJoin           = "join"
	TypeLeave          = "leave"
	TypePositionUpdate = "position_update"
	TypeShoot          = "shoot"
	TypeReload         = "reload"
	TypeWeaponSwitch   = "weapon_switch"
	TypeRequestState   = "request_state"
	TypeKeepalive      = "keepalive"
)

var (
	errPacketTooLarge = errors.New("packet exceeds maximum size")
	errMissingType    = errors.New("packet has no type field")
)

// Inbound is the superset of fields a client datagram may carry. Only the
// fields relevant to Type are read.
type Inbound struct {
	Type       string     `json:"type"`
	LobbyCode  string     `json:"lobby_code"`
	PlayerID   uint32     `json:"player_id"`
	PlayerName string     `json:"player_name"`
	TargetID   uint32     `json:"target_id"`
	WeaponID   uint32     `json:"weapon_id"`
	Position   *game.Vec3 `json:"position"`
	Rotation   *game.Vec3 `json:"rotation"`
}

// Decode parses one datagram, rejecting oversized and malformed input before
// anything reaches a lobby queue.
func Decode(data []byte, maxSize int) (Inbound, error) {
	var in Inbound
	if len(data) > maxSize {
		return in, errPacketTooLarge
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, err
	}
	if in.Type == "" {
		return in, errMissingType
	}
	return in, nil
}
