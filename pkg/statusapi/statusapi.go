// Package statusapi exposes a read-only HTTP surface over a peer's
// connections: current RTT, clock offset, and timeout deadline, for
// operators and debugging tools.
//
// Routed with go-chi/chi, the router the teacher's go.mod already carries
// as a direct dependency; nothing in the kept teacher packages has an HTTP
// surface of its own, so this is new per the domain-stack wiring goal
// rather than an adaptation of an existing handler.
package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/nexbridge/wiretransport/pkg/transport"
)

// ConnectionStatus is the JSON shape returned for a single connection.
type ConnectionStatus struct {
	ID                string  `json:"id"`
	RemoteEndpoint    string  `json:"remote_endpoint"`
	RTT               float64 `json:"rtt,omitempty"`
	HasRTT            bool    `json:"has_rtt"`
	MinRTT            float64 `json:"min_rtt,omitempty"`
	RemoteTimeOffset  float64 `json:"remote_time_offset"`
	TimeoutDeadline   float64 `json:"timeout_deadline"`
	ConfiguredTimeout float64 `json:"configured_timeout"`
}

// Server serves connection status over HTTP for a single Peer.
type Server struct {
	peer   transport.Peer
	router chi.Router
}

// New builds a Server routed over peer's connections.
func New(peer transport.Peer) *Server {
	s := &Server{peer: peer, router: chi.NewRouter()}
	s.router.Get("/connections", s.listConnections)
	s.router.Get("/connections/{id}/latency", s.connectionLatency)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func statusFor(c transport.Connection) ConnectionStatus {
	rtt, ok := c.Engine().AverageRoundtripTime()
	return ConnectionStatus{
		ID:                c.ID().String(),
		RemoteEndpoint:    c.RemoteEndpoint().String(),
		RTT:               rtt,
		HasRTT:            ok,
		MinRTT:            c.Engine().MinRTT(),
		RemoteTimeOffset:  c.Engine().RemoteTimeOffset(),
		TimeoutDeadline:   c.Engine().TimeoutDeadline(),
		ConfiguredTimeout: c.ConfiguredTimeout(),
	}
}

func (s *Server) listConnections(w http.ResponseWriter, _ *http.Request) {
	conns := s.peer.Connections()
	out := make([]ConnectionStatus, 0, len(conns))
	for _, c := range conns {
		out = append(out, statusFor(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) connectionLatency(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := parseConnectionID(idStr)
	if err != nil {
		http.Error(w, "malformed connection id", http.StatusBadRequest)
		return
	}
	conn, ok := s.peer.Connection(id)
	if !ok {
		http.Error(w, "connection not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, statusFor(conn))
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseConnectionID(s string) (transport.ConnectionID, error) {
	return uuid.Parse(s)
}
