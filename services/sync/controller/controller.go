// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package controller owns the authoritative local copy of one mutable
// remote entity and its mutation protocol.
//
// A Controller is generic over an entity state S and its delta D, with
// the kind-specific behavior (deep copy, delta application, request
// shapes) supplied by a Binding. Mutations are optimistic: observers see
// the change immediately, the server's response is adopted wholesale on
// success, and the exact pre-mutation snapshot is restored on failure.
package controller

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tidewaterlabs/shelfsync/pkg/logging"
	"github.com/tidewaterlabs/shelfsync/services/sync/cache"
	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
	"github.com/tidewaterlabs/shelfsync/services/sync/registry"
	"github.com/tidewaterlabs/shelfsync/services/sync/session"
)

var tracer = otel.Tracer("shelfsync.controller")

func spanAttrs(id entity.Identity) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("entity.kind", string(id.Kind)),
		attribute.String("entity.id", id.ID),
	)
}

// Phase is the controller lifecycle state.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseSynced        Phase = "synced"
	PhaseMutating      Phase = "mutating"
	PhaseRolledBack    Phase = "rolled_back"
)

// Binding supplies the kind-specific behavior a Controller needs: deep
// copies, delta application, and the wire shape of each operation.
//
// Snapshot must return a copy that shares no mutable memory with its
// argument; rollback exactness depends on it.
type Binding[S, D any] interface {
	Identity() entity.Identity
	CacheKey() string

	Snapshot(S) S
	Apply(S, D) S
	Validate(D) error

	FetchRequest() gateway.Descriptor
	MutateRequest(optimistic S, delta D) gateway.Descriptor
	DeleteRequest() gateway.Descriptor
}

// Deps are the injected collaborators shared by all controllers.
// Registry may be nil in tests; everything else is required.
type Deps struct {
	Gateway  gateway.Gateway
	Cache    *cache.Store
	Session  session.Context
	Registry *registry.Registry
	Log      *logging.Logger
}

// Controller is the single live owner of one entity's state.
//
// # Thread Safety
//
// State reads and writes are guarded by mu. Mutations and deletes queue
// on opMu so at most one write is in flight; loads instead supersede:
// a newer Load cancels the outstanding one, and a superseded completion
// is discarded by generation check rather than overwriting newer state.
// A committed mutation or delete also supersedes any outstanding load,
// so a fetch issued before the write can never land on top of it.
type Controller[S, D any] struct {
	binding Binding[S, D]
	deps    Deps

	opMu sync.Mutex

	mu         sync.Mutex
	state      S
	populated  bool
	phase      Phase
	loadGen    uint64
	cancelLoad context.CancelFunc
}

// New creates a controller in the Uninitialized phase. Callers normally
// go through the registry helpers (ForMark, ForStatus) instead, which
// guarantee one instance per identity.
func New[S, D any](binding Binding[S, D], deps Deps) *Controller[S, D] {
	if deps.Log == nil {
		deps.Log = logging.Discard()
	}
	return &Controller[S, D]{binding: binding, deps: deps, phase: PhaseUninitialized}
}

// Current returns the best-known local state, possibly stale. It never
// blocks on the network and returns a copy the caller may hold freely.
func (c *Controller[S, D]) Current() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binding.Snapshot(c.state)
}

// Populated reports whether the controller holds a loaded state.
func (c *Controller[S, D]) Populated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.populated
}

// Phase returns the current lifecycle phase.
func (c *Controller[S, D]) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Load populates the controller. When the state is already populated and
// force is false this is a no-op. Otherwise the cache is consulted first
// and a hit is adopted immediately, then a network fetch runs regardless
// so cached state can never go stale forever.
//
// A Load issued while another is outstanding supersedes it: the older
// call's context is cancelled and its completion, should it still land,
// is discarded. Superseded calls return a Cancelled-class error, which
// callers treat as silence, not failure. A NotFound response is the
// valid empty state for reads and returns nil.
func (c *Controller[S, D]) Load(ctx context.Context, force bool) error {
	id := c.binding.Identity()
	ctx, span := tracer.Start(ctx, "controller.load", spanAttrs(id))
	defer span.End()

	c.mu.Lock()
	if c.populated && !force {
		c.mu.Unlock()
		return nil
	}
	c.loadGen++
	gen := c.loadGen
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancelLoad = cancel
	c.mu.Unlock()
	defer cancel()

	key := c.binding.CacheKey()
	adopted := false
	if cached, ok := cache.GetJSON[S](loadCtx, c.deps.Cache, key); ok {
		c.mu.Lock()
		if gen == c.loadGen {
			c.state = cached
			c.populated = true
			c.phase = PhaseSynced
			adopted = true
		}
		c.mu.Unlock()
	}

	var fresh S
	err := c.deps.Gateway.Execute(loadCtx, c.binding.FetchRequest(), &fresh)
	switch {
	case err == nil:
	case gateway.IsCancelled(err):
		return err
	case gateway.IsNotFound(err):
		c.mu.Lock()
		if gen != c.loadGen {
			c.mu.Unlock()
			return gateway.NewError(gateway.ClassCancelled, 0, "load superseded", nil)
		}
		var zero S
		c.state = zero
		c.populated = true
		c.phase = PhaseSynced
		c.deps.Cache.Remove(ctx, key)
		c.mu.Unlock()
		return nil
	case adopted:
		c.deps.Log.Warn("refresh failed, keeping cached state",
			"kind", string(id.Kind), "id", id.ID, "class", string(gateway.ClassOf(err)))
		return nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return err
	}

	c.mu.Lock()
	if gen != c.loadGen {
		c.mu.Unlock()
		return gateway.NewError(gateway.ClassCancelled, 0, "load superseded", nil)
	}
	c.state = c.binding.Snapshot(fresh)
	c.populated = true
	c.phase = PhaseSynced
	// The cache write stays under mu so it cannot interleave with a
	// supersede from a committing mutation or delete.
	cache.PutJSON(ctx, c.deps.Cache, key, fresh, 0)
	c.mu.Unlock()
	return nil
}

// supersedeLoadsLocked invalidates any outstanding load so its late
// completion fails the generation check instead of landing on top of
// the state committed here. Caller holds mu.
func (c *Controller[S, D]) supersedeLoadsLocked() {
	c.loadGen++
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
}

// Mutate applies delta optimistically, issues the network write, and
// reconciles with the server's authoritative response. Server-side
// normalizations win over the local guess. On failure the exact
// pre-mutation snapshot is restored and the classified error returned;
// the caller is responsible for surfacing it.
//
// Concurrent mutations queue; each carries a fresh idempotency key so a
// replay after an ambiguous failure cannot double-apply.
func (c *Controller[S, D]) Mutate(ctx context.Context, delta D) error {
	id := c.binding.Identity()
	if !c.deps.Session.Authenticated() {
		return gateway.NewError(gateway.ClassUnauthorized, 0, "sign in to make changes", nil)
	}
	if err := c.binding.Validate(delta); err != nil {
		return gateway.NewError(gateway.ClassServerRejected, 0, err.Error(), err)
	}

	ctx, span := tracer.Start(ctx, "controller.mutate", spanAttrs(id))
	defer span.End()

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	snapshot := c.binding.Snapshot(c.state)
	optimistic := c.binding.Apply(c.state, delta)
	c.state = optimistic
	c.phase = PhaseMutating
	c.mu.Unlock()

	req := c.binding.MutateRequest(optimistic, delta)
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	var fresh S
	if err := c.deps.Gateway.Execute(ctx, req, &fresh); err != nil {
		c.mu.Lock()
		c.state = snapshot
		c.phase = PhaseRolledBack
		c.mu.Unlock()
		c.deps.Log.Warn("mutation rolled back",
			"kind", string(id.Kind), "id", id.ID, "class", string(gateway.ClassOf(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "mutation failed")
		return err
	}

	c.mu.Lock()
	c.supersedeLoadsLocked()
	c.state = c.binding.Snapshot(fresh)
	c.populated = true
	c.phase = PhaseSynced
	cache.PutJSON(ctx, c.deps.Cache, c.binding.CacheKey(), fresh, 0)
	c.mu.Unlock()
	return nil
}

// Delete issues the network delete. There is no optimistic removal:
// deletion is destructive and must be confirmed by the server before any
// local state changes. On success the cache entry is purged and the
// controller released from the registry; on failure state is untouched.
func (c *Controller[S, D]) Delete(ctx context.Context) error {
	id := c.binding.Identity()
	if !c.deps.Session.Authenticated() {
		return gateway.NewError(gateway.ClassUnauthorized, 0, "sign in to make changes", nil)
	}

	ctx, span := tracer.Start(ctx, "controller.delete", spanAttrs(id))
	defer span.End()

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.deps.Gateway.Execute(ctx, c.binding.DeleteRequest(), nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}

	// Supersede before the cache purge: an in-flight load that has not
	// committed yet must not be able to resurrect the entry.
	c.mu.Lock()
	c.supersedeLoadsLocked()
	var zero S
	c.state = zero
	c.populated = false
	c.phase = PhaseUninitialized
	c.deps.Cache.Remove(ctx, c.binding.CacheKey())
	c.mu.Unlock()

	if c.deps.Registry != nil {
		c.deps.Registry.Release(id)
	}

	c.deps.Log.Info("entity deleted", "kind", string(id.Kind), "id", id.ID)
	return nil
}
