package game

import (
	"net"
	"sync"
)

func testAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

type sentPacket struct {
	Addr   *net.UDPAddr
	Packet any
}

// fakeSender records every packet instead of touching a socket.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentPacket
}

func (f *fakeSender) Send(addr *net.UDPAddr, packet any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentPacket{Addr: addr, Packet: packet})
}

func (f *fakeSender) Broadcast(addrs []*net.UDPAddr, packet any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, addr := range addrs {
		f.sent = append(f.sent, sentPacket{Addr: addr, Packet: packet})
	}
}

func (f *fakeSender) packets() []sentPacket {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentPacket, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}
