// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package entity defines the synchronized entity kinds and their deltas.
//
// Three kinds are synchronized: marks (a user's shelf entry for a catalog
// item), social status interaction state, and catalog items. Marks and
// statuses are read-write and flow through the controller machinery;
// catalog items are read-mostly and flow through the load orchestrator.
//
// All types here are plain values. Deep copies are explicit via Clone so
// the controller's snapshot/rollback contract is mechanical rather than
// relying on Go's shallow struct copying.
package entity

import (
	"errors"
	"fmt"
)

// Kind identifies a synchronized entity type. The set is closed.
type Kind string

const (
	// KindMark is a user's shelf entry for a catalog item.
	KindMark Kind = "mark"

	// KindSocialStatus is the interaction state of a social post.
	KindSocialStatus Kind = "status"

	// KindCatalogItem is a cataloged work (book, movie, show, game).
	KindCatalogItem Kind = "item"
)

// ErrUnknownKind indicates a kind outside the closed set.
var ErrUnknownKind = errors.New("unknown entity kind")

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindMark, KindSocialStatus, KindCatalogItem:
		return true
	default:
		return false
	}
}

// Identity names one remote entity instance under one local session.
//
// Scope is the owning session id, so the same remote id seen by two local
// accounts never collides. Identity is immutable, comparable, and used
// directly as the registry map key and the cache key prefix.
type Identity struct {
	Kind  Kind
	ID    string
	Scope string
}

// NewIdentity constructs an Identity, validating the kind.
func NewIdentity(kind Kind, id, scope string) (Identity, error) {
	if !kind.Valid() {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if id == "" {
		return Identity{}, errors.New("entity id must not be empty")
	}
	if scope == "" {
		return Identity{}, errors.New("scope must not be empty")
	}
	return Identity{Kind: kind, ID: id, Scope: scope}, nil
}

// String renders the identity in cache-key order: scope first, so every
// key belonging to a session shares one prefix.
func (i Identity) String() string {
	return i.Scope + "/" + string(i.Kind) + "/" + i.ID
}
