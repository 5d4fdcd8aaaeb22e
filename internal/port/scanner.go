package port

import (
	"fmt"
	"net"
	"sort"
)

// Scanner checks host port availability. It is stateless; the struct
// exists so the controller can take it as a dependency.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable reports whether port is free for protocol ("tcp" or
// "udp"). It binds on all interfaces because Docker publishes on 0.0.0.0.
// Unknown protocols are reported as unavailable.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	addr := fmt.Sprintf(":%d", port)

	switch protocol {
	case "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		_ = listener.Close()
		return true

	case "udp":
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true

	default:
		return false
	}
}

// Busy is a published port that is already bound on the host.
type Busy struct {
	Service string `json:"service"`
	Port    int    `json:"port"`
}

// String formats the conflict for operator output.
func (b Busy) String() string {
	return fmt.Sprintf("%s (port %d)", b.Service, b.Port)
}

// BusyPorts returns the TCP ports in the service→port map that are already
// bound, sorted by port.
func (s *Scanner) BusyPorts(ports map[string]int) []Busy {
	var busy []Busy
	for service, p := range ports {
		if !s.IsPortAvailable(p, "tcp") {
			busy = append(busy, Busy{Service: service, Port: p})
		}
	}
	sort.Slice(busy, func(i, j int) bool {
		return busy[i].Port < busy[j].Port
	})
	return busy
}
