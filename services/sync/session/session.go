// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session carries the identity context that scopes cached
// entities and authorizes mutations.
package session

import (
	"context"

	"github.com/tidewaterlabs/shelfsync/pkg/logging"
	"github.com/tidewaterlabs/shelfsync/services/sync/cache"
	"github.com/tidewaterlabs/shelfsync/services/sync/registry"
)

// Context identifies the active account for one process session.
//
// Scope partitions cache keys and controllers so entities from two
// accounts never alias each other. Token is empty for anonymous
// sessions; gateway.TokenSource is satisfied by any Context.
type Context interface {
	Scope() string
	Authenticated() bool
	Token() string
}

// Account is a signed-in session backed by a static bearer token.
type Account struct {
	scope string
	token string
}

// NewAccount creates an authenticated session. scope is typically the
// server-assigned account id; it must be stable across restarts so the
// disk cache survives.
func NewAccount(scope, token string) *Account {
	return &Account{scope: scope, token: token}
}

func (a *Account) Scope() string       { return a.scope }
func (a *Account) Authenticated() bool { return a.token != "" }
func (a *Account) Token() string       { return a.token }

// Anonymous returns an unauthenticated session. Reads of public data
// still work; mutations fail fast before touching the network.
func Anonymous(scope string) *Account {
	return &Account{scope: scope}
}

// Teardown clears everything a session accumulated: cached entities on
// both tiers and live controllers. Used on logout and account switch so
// the next session starts from an empty slate.
type Teardown struct {
	Cache    *cache.Store
	Registry *registry.Registry
	Log      *logging.Logger
}

// Logout purges all state under the session's scope.
func (t *Teardown) Logout(ctx context.Context, sess Context) {
	scope := sess.Scope()
	if t.Cache != nil {
		t.Cache.RemoveAll(ctx, scope)
	}
	released := 0
	if t.Registry != nil {
		released = t.Registry.ReleaseScope(scope)
	}
	if t.Log != nil {
		t.Log.Info("session torn down", "scope", scope, "controllers_released", released)
	}
}
