package gsdial

import "github.com/l2emu/core/internal/broker"

// lsRegistry adapts a single Client into broker.Registry[string] — the
// GS↔LS channel has exactly one peer (the login server), unlike the LS
// side's many-GS registry.HandlerRegistry, so a one-entry map suffices.
type lsRegistry struct {
	sink broker.Sink
}

func (r *lsRegistry) Get(id string) (broker.Sink, bool) {
	if r.sink == nil {
		return nil, false
	}
	return r.sink, true
}

func (r *lsRegistry) Snapshot() map[string]broker.Sink {
	if r.sink == nil {
		return nil
	}
	return map[string]broker.Sink{"ls": r.sink}
}
