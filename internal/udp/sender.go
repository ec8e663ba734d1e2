package udp

import (
	"encoding/json"
	"net"

	"go.uber.org/zap"
)

// Sender serializes wire records and writes them to the shared socket.
// WriteToUDP is safe for concurrent use, so every lobby tick shares one
// Sender without extra locking. Send errors are best-effort losses: delta
// sync re-emits from the authoritative snapshot on the next change.
type Sender struct {
	conn *net.UDPConn
	log  *zap.Logger

	// OnSendError is an optional metric hook.
	OnSendError func()
}

// NewSender wraps the shared socket.
func NewSender(conn *net.UDPConn, log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{conn: conn, log: log}
}

// Send serializes one record and sends it to a single address.
func (s *Sender) Send(addr *net.UDPAddr, packet any) {
	data, err := json.Marshal(packet)
	if err != nil {
		s.log.Warn("packet marshal failed", zap.Error(err))
		return
	}
	s.write(addr, data)
}

// Broadcast serializes once and sends to every address.
func (s *Sender) Broadcast(addrs []*net.UDPAddr, packet any) {
	if len(addrs) == 0 {
		return
	}
	data, err := json.Marshal(packet)
	if err != nil {
		s.log.Warn("packet marshal failed", zap.Error(err))
		return
	}
	for _, addr := range addrs {
		s.write(addr, data)
	}
}

func (s *Sender) write(addr *net.UDPAddr, data []byte) {
	if _, err := s.conn.WriteToUDP(data, addr); err != nil {
		s.log.Debug("udp send failed", zap.Stringer("addr", addr), zap.Error(err))
		if s.OnSendError != nil {
			s.OnSendError()
		}
	}
}
