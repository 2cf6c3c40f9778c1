// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package registry maps entity identities to their single live
// controller instance.
//
// The registry is the at-most-one-controller-per-entity guarantee: two
// list rows showing the same mark render from the identical controller,
// so a mutation in one is instantly visible in the other with no refresh
// message. One registry exists per process, constructed at startup and
// injected; it is never scoped per screen.
package registry

import (
	"sync"

	"github.com/tidewaterlabs/shelfsync/pkg/logging"
	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
)

// Registry is the process-wide identity → controller map.
//
// # Thread Safety
//
// All access is serialized by one mutex. Factories passed to For run
// under that mutex, which is what makes "constructed at most once"
// mechanical; a factory must therefore not call back into the registry.
type Registry struct {
	mu          sync.Mutex
	controllers map[entity.Identity]any
	log         *logging.Logger
}

// New creates an empty Registry.
func New(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Discard()
	}
	return &Registry{
		controllers: make(map[entity.Identity]any),
		log:         log,
	}
}

// For returns the live controller for id, constructing it with factory
// exactly once if absent. An existing controller is returned unchanged:
// no state reset, no re-fetch.
//
// The stored instance must be of type C on every access for the same
// identity; kinds and controller types correspond one-to-one, so a
// mismatch is a programming error and panics via the type assertion.
func For[C any](r *Registry, id entity.Identity, factory func() C) C {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.controllers[id]; ok {
		return existing.(C)
	}

	controller := factory()
	r.controllers[id] = controller
	r.log.Debug("controller created", "kind", string(id.Kind), "id", id.ID, "scope", id.Scope)
	return controller
}

// Lookup returns the live controller for id without constructing one.
func Lookup[C any](r *Registry, id entity.Identity) (C, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.controllers[id]
	if !ok {
		var zero C
		return zero, false
	}
	return existing.(C), true
}

// Release removes the controller for id, if any. Called after a
// destructive mutation so a stale controller is never handed out for an
// entity that no longer exists.
func (r *Registry) Release(id entity.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.controllers[id]; ok {
		delete(r.controllers, id)
		r.log.Debug("controller released", "kind", string(id.Kind), "id", id.ID)
	}
}

// ReleaseScope removes every controller under scope and returns how many
// were dropped. Used on logout and account switch.
func (r *Registry) ReleaseScope(scope string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for id := range r.controllers {
		if id.Scope == scope {
			delete(r.controllers, id)
			released++
		}
	}
	if released > 0 {
		r.log.Info("scope controllers released", "scope", scope, "count", released)
	}
	return released
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
