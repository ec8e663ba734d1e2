package game

import "net"

// CommandKind discriminates the Command variant.
type CommandKind uint8

// Command kinds. Producers are the UDP ingress and the HTTP handlers; the
// single consumer is the lobby's tick loop.
const (
	CmdPlayerJoin CommandKind = iota
	CmdPlayerLeave
	CmdUDPConnect
	CmdPositionUpdate
	CmdShoot
	CmdReload
	CmdWeaponSwitch
	CmdHeartbeat
)

// String returns the command kind for log lines.
func (k CommandKind) String() string {
	switch k {
	case CmdPlayerJoin:
		return "player_join"
	case CmdPlayerLeave:
		return "player_leave"
	case CmdUDPConnect:
		return "udp_connect"
	case CmdPositionUpdate:
		return "position_update"
	case CmdShoot:
		return "shoot"
	case CmdReload:
		return "reload"
	case CmdWeaponSwitch:
		return "weapon_switch"
	case CmdHeartbeat:
		return "heartbeat"
	}
	return "unknown"
}

// Command is the tagged variant flowing through a lobby's queue. Only the
// fields relevant to Kind are set.
type Command struct {
	Kind     CommandKind
	PlayerID uint32
	Name     string       // PlayerJoin, UDPConnect
	Addr     *net.UDPAddr // PlayerJoin, UDPConnect, PositionUpdate, Heartbeat
	Position Vec3         // PositionUpdate
	Rotation Vec3         // PositionUpdate
	TargetID uint32       // Shoot
	WeaponID uint32       // WeaponSwitch
}

// drainCommands empties the queue without blocking, coalescing position
// updates per player: only the most recent payload survives, kept at the
// slot of that player's first position update so it still applies before any
// later command from the same producer.
//
// Returns the batch, whether the channel is still open, and how many
// position updates were discarded by coalescing.
func drainCommands(ch <-chan Command, buf []Command, posSlots map[uint32]int) ([]Command, bool, int) {
	coalesced := 0
	for {
		select {
		case cmd, ok := <-ch:
			if !ok {
				return buf, false, coalesced
			}
			if cmd.Kind == CmdPositionUpdate {
				if slot, seen := posSlots[cmd.PlayerID]; seen {
					buf[slot] = cmd
					coalesced++
					continue
				}
				posSlots[cmd.PlayerID] = len(buf)
			}
			buf = append(buf, cmd)
		default:
			return buf, true, coalesced
		}
	}
}
