package udp

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"

	"github.com/lambdv/gungame/internal/game"
)

// ServerConfig wires the ingress loop.
type ServerConfig struct {
	Conn          *net.UDPConn
	Registry      *game.Registry
	Sender        *Sender
	Limiter       *AddrRateLimiter
	Logger        *zap.Logger
	MaxPacketSize int

	// Optional metric hooks.
	OnPacket   func(packetType string)
	OnRejected func(reason string)
}

// Server is the single UDP read loop. It never mutates lobby state: every
// gameplay effect goes through the owning lobby's command queue.
type Server struct {
	conn          *net.UDPConn
	registry      *game.Registry
	sender        *Sender
	limiter       *AddrRateLimiter
	log           *zap.Logger
	maxPacketSize int

	onPacket   func(string)
	onRejected func(string)
}

// NewServer builds the ingress server around an already-bound socket.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxPacketSize <= 0 {
		cfg.MaxPacketSize = 1024
	}
	return &Server{
		conn:          cfg.Conn,
		registry:      cfg.Registry,
		sender:        cfg.Sender,
		limiter:       cfg.Limiter,
		log:           cfg.Logger,
		maxPacketSize: cfg.MaxPacketSize,
		onPacket:      cfg.OnPacket,
		onRejected:    cfg.OnRejected,
	}
}

// Run reads datagrams until the context is cancelled. Closing the socket
// unblocks the read; the loop then notices the cancelled context and exits.
func (s *Server) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	s.log.Info("udp ingress started", zap.Stringer("addr", s.conn.LocalAddr()))

	buf := make([]byte, s.maxPacketSize+1)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info("udp ingress stopped")
				return
			}
			s.log.Error("udp recv error", zap.Error(err))
			continue
		}

		if s.limiter != nil && !s.limiter.Allow(addr.String()) {
			if s.onRejected != nil {
				s.onRejected("rate_limit")
			}
			continue
		}

		in, err := Decode(buf[:n], s.maxPacketSize)
		if err != nil {
			s.log.Debug("dropping bad packet", zap.Stringer("addr", addr), zap.Error(err))
			if s.onRejected != nil {
				s.onRejected("invalid")
			}
			continue
		}

		if s.onPacket != nil {
			// Only the known inbound types become metric labels.
			switch in.Type {
			case TypeJoin, TypeLeave, TypePositionUpdate, TypeShoot,
				TypeReload, TypeWeaponSwitch, TypeRequestState, TypeKeepalive:
				s.onPacket(in.Type)
			}
		}
		s.dispatch(in, addr)
	}
}

// dispatch turns one parsed datagram into a lobby command or a point reply.
func (s *Server) dispatch(in Inbound, addr *net.UDPAddr) {
	switch in.Type {
	case TypeJoin:
		s.handleJoin(in, addr)

	case TypeLeave:
		if engine, ok := s.registry.RoutePlayer(in.PlayerID); ok {
			engine.Enqueue(game.Command{Kind: game.CmdPlayerLeave, PlayerID: in.PlayerID})
		}

	case TypePositionUpdate:
		if in.Position == nil {
			s.log.Debug("position update without position", zap.Uint32("player_id", in.PlayerID))
			return
		}
		engine, ok := s.registry.RoutePlayer(in.PlayerID)
		if !ok {
			s.log.Debug("no lobby for player", zap.Uint32("player_id", in.PlayerID))
			return
		}
		cmd := game.Command{
			Kind:     game.CmdPositionUpdate,
			PlayerID: in.PlayerID,
			Position: *in.Position,
			Addr:     addr,
		}
		if in.Rotation != nil {
			cmd.Rotation = *in.Rotation
		}
		engine.Enqueue(cmd)

	case TypeShoot:
		if engine, ok := s.registry.RoutePlayer(in.PlayerID); ok {
			engine.Enqueue(game.Command{
				Kind:     game.CmdShoot,
				PlayerID: in.PlayerID,
				TargetID: in.TargetID,
			})
		}

	case TypeReload:
		if engine, ok := s.registry.RoutePlayer(in.PlayerID); ok {
			engine.Enqueue(game.Command{Kind: game.CmdReload, PlayerID: in.PlayerID})
		}

	case TypeWeaponSwitch:
		if engine, ok := s.registry.RoutePlayer(in.PlayerID); ok {
			engine.Enqueue(game.Command{
				Kind:     game.CmdWeaponSwitch,
				PlayerID: in.PlayerID,
				WeaponID: in.WeaponID,
			})
		}

	case TypeRequestState:
		engine, ok := s.registry.RoutePlayer(in.PlayerID)
		if !ok {
			return
		}
		if state, ok := engine.FullState(in.PlayerID); ok {
			s.sender.Send(addr, state)
		}

	case TypeKeepalive:
		if engine, ok := s.registry.RoutePlayer(in.PlayerID); ok {
			engine.Enqueue(game.Command{Kind: game.CmdHeartbeat, PlayerID: in.PlayerID, Addr: addr})
		}

	default:
		s.log.Debug("unknown packet type", zap.String("type", in.Type), zap.Stringer("addr", addr))
	}
}

// handleJoin binds an HTTP-admitted player to its UDP address. The only
// error a UDP client ever sees is the explicit error ack for a bad join.
func (s *Server) handleJoin(in Inbound, addr *net.UDPAddr) {
	engine, ok := s.registry.Get(in.LobbyCode)
	if !ok {
		s.sender.Send(addr, game.ErrorPacket{Type: game.TypeError, Message: "Lobby not found"})
		s.log.Warn("join for unknown lobby",
			zap.String("lobby_code", in.LobbyCode),
			zap.Uint32("player_id", in.PlayerID))
		return
	}

	engine.Enqueue(game.Command{
		Kind:     game.CmdUDPConnect,
		PlayerID: in.PlayerID,
		Name:     in.PlayerName,
		Addr:     addr,
	})

	s.sender.Send(addr, game.WelcomePacket{
		Type:     game.TypeWelcome,
		Message:  "Connected to lobby",
		PlayerID: in.PlayerID,
	})
	s.log.Info("player udp connected",
		zap.Uint32("player_id", in.PlayerID),
		zap.String("lobby_code", in.LobbyCode),
		zap.Stringer("addr", addr))
}
