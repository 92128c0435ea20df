package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/classmeet/internal/core"
)

// Registry tracks every live signaling connection, joined or not, so the
// server can close them all on shutdown.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.SessionID]core.SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.SessionID]core.SignalConnection)}
}

func (r *Registry) Bind(sid core.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sid] = conn
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound connection")
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, sid)
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound connection")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every live connection with the given status.
func (r *Registry) CloseAll(code core.CloseCode) int {
	r.mu.RLock()
	conns := make([]core.SignalConnection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		c.Close(code)
	}
	log.Info().Str("module", "app.registry").Int("connections", len(conns)).Msg("closed all connections")
	return len(conns)
}
