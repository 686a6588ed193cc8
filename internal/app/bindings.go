package app

import (
	"sync"

	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/rs/zerolog/log"
)

// BindingTable maps an identity to the single connection currently holding it.
// Both directions are kept under one lock so neither side can drift.
type BindingTable struct {
	mu         sync.RWMutex
	byIdentity map[domain.Identity]core.ConnID
	byConn     map[core.ConnID]domain.Identity
}

func NewBindingTable() *BindingTable {
	return &BindingTable{
		byIdentity: make(map[domain.Identity]core.ConnID),
		byConn:     make(map[core.ConnID]domain.Identity),
	}
}

// Bind makes conn the holder of identity. It returns the connection that held
// the identity before, if it was a different one. A connection that was bound
// to another identity loses that binding.
func (b *BindingTable) Bind(identity domain.Identity, conn core.ConnID) (prev core.ConnID, replaced bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.byConn[conn]; ok && old != identity {
		delete(b.byIdentity, old)
		delete(b.byConn, conn)
	}
	prev, replaced = b.byIdentity[identity]
	if replaced && prev != conn {
		delete(b.byConn, prev)
	}
	b.byIdentity[identity] = conn
	b.byConn[conn] = identity

	ev := log.Info().Str("module", "app.bindings").Str("identity", string(identity)).Str("conn", string(conn))
	if replaced && prev != conn {
		ev = ev.Str("replaced", string(prev))
	}
	ev.Msg("bound identity")
	return prev, replaced && prev != conn
}

func (b *BindingTable) Lookup(identity domain.Identity) (core.ConnID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	conn, ok := b.byIdentity[identity]
	if !ok {
		return "", domain.ErrIdentityOffline
	}
	return conn, nil
}

func (b *BindingTable) IdentityOf(conn core.ConnID) (domain.Identity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.byConn[conn]
	return id, ok
}

func (b *BindingTable) IsBound(identity domain.Identity) bool {
	_, err := b.Lookup(identity)
	return err == nil
}

// Unbind drops the binding owned by conn. Unknown connections are a no-op.
func (b *BindingTable) Unbind(conn core.ConnID) (domain.Identity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.byConn[conn]
	if !ok {
		return "", false
	}
	delete(b.byConn, conn)
	if b.byIdentity[id] == conn {
		delete(b.byIdentity, id)
	}
	log.Info().Str("module", "app.bindings").Str("identity", string(id)).Str("conn", string(conn)).Msg("unbound identity")
	return id, true
}

func (b *BindingTable) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byIdentity)
}
