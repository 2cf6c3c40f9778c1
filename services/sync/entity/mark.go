// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package entity

import (
	"fmt"
	"time"
)

// ShelfState is the reading/watching progress shelf a mark sits on.
type ShelfState string

const (
	ShelfWishlist   ShelfState = "wishlist"
	ShelfInProgress ShelfState = "progress"
	ShelfComplete   ShelfState = "complete"
	ShelfDropped    ShelfState = "dropped"
)

// Valid reports whether s is a known shelf state.
func (s ShelfState) Valid() bool {
	switch s {
	case ShelfWishlist, ShelfInProgress, ShelfComplete, ShelfDropped:
		return true
	default:
		return false
	}
}

// Visibility controls who can see a mark's generated post.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return true
	default:
		return false
	}
}

// Mark is a user's shelf entry for one catalog item. Exactly one mark
// exists per (item, session) pair; the server treats a second create as an
// update, and the client always writes by item id.
//
// Rating is 1..10 when present; nil means unrated. The wire sentinel 0
// ("clear my rating") never survives into a Mark value: ApplyDelta
// normalizes it to nil, and the JSON encoding below omits a nil rating
// entirely, so a cleared rating cannot round-trip as a visible zero.
type Mark struct {
	// ItemID is the catalog item this mark belongs to.
	ItemID string `json:"item_id"`

	// Shelf is the progress shelf.
	Shelf ShelfState `json:"shelf_type"`

	// Visibility controls audience for the mark's post.
	Visibility Visibility `json:"visibility"`

	// Comment is the user's free-text note. Nil when absent; the server
	// drops a comment that became empty, and reconcile adopts that.
	Comment *string `json:"comment_text,omitempty"`

	// Rating is 1..10, nil when unrated.
	Rating *int `json:"rating_grade,omitempty"`

	// Tags is an ordered list; duplicates are allowed and order matters.
	Tags []string `json:"tags"`

	// CreatedAt is nil when the server should assign the time.
	CreatedAt *time.Time `json:"created_time,omitempty"`

	// PostID is assigned by the server and never written by the client.
	PostID string `json:"post_id,omitempty"`
}

// MarkDelta is a partial update to a Mark. Nil fields are untouched.
type MarkDelta struct {
	Shelf      *ShelfState
	Visibility *Visibility

	// Comment replaces the comment; an empty string clears it.
	Comment *string

	// Rating replaces the rating; 0 clears it.
	Rating *int

	// Tags replaces the whole tag list.
	Tags *[]string

	// CreatedAt backdates the mark.
	CreatedAt *time.Time
}

// Validate rejects deltas that could never be accepted by the server.
func (d MarkDelta) Validate() error {
	if d.Shelf != nil && !d.Shelf.Valid() {
		return fmt.Errorf("invalid shelf state %q", *d.Shelf)
	}
	if d.Visibility != nil && !d.Visibility.Valid() {
		return fmt.Errorf("invalid visibility %q", *d.Visibility)
	}
	if d.Rating != nil && (*d.Rating < 0 || *d.Rating > 10) {
		return fmt.Errorf("rating %d out of range 0..10", *d.Rating)
	}
	return nil
}

// Clone returns a deep copy. Tags, Comment, Rating and CreatedAt are
// duplicated so a retained snapshot cannot be mutated through the
// original.
func (m Mark) Clone() Mark {
	out := m
	if m.Comment != nil {
		c := *m.Comment
		out.Comment = &c
	}
	if m.Rating != nil {
		r := *m.Rating
		out.Rating = &r
	}
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	if m.CreatedAt != nil {
		t := *m.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

// ApplyDelta returns a copy of m with d applied.
//
// Normalizations happen here, not at encode time: a rating of 0 becomes
// nil (absent), so Current() never reports a literal zero-star rating.
func (m Mark) ApplyDelta(d MarkDelta) Mark {
	out := m.Clone()
	if d.Shelf != nil {
		out.Shelf = *d.Shelf
	}
	if d.Visibility != nil {
		out.Visibility = *d.Visibility
	}
	if d.Comment != nil {
		if *d.Comment == "" {
			out.Comment = nil
		} else {
			c := *d.Comment
			out.Comment = &c
		}
	}
	if d.Rating != nil {
		if *d.Rating == 0 {
			out.Rating = nil
		} else {
			r := *d.Rating
			out.Rating = &r
		}
	}
	if d.Tags != nil {
		out.Tags = append([]string(nil), (*d.Tags)...)
	}
	if d.CreatedAt != nil {
		t := *d.CreatedAt
		out.CreatedAt = &t
	}
	return out
}
