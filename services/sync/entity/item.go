// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package entity

// CatalogItem describes a cataloged work. It is read-mostly: "mutation"
// means wholesale replacement by a fresher fetch, never field edits.
//
// Listings return stub items (title and cover only); the detail endpoint
// returns the full record. Merge enforces that a stub never overwrites a
// detailed record already held for the same id.
type CatalogItem struct {
	ID string `json:"uuid"`

	// Category is the work's media kind: book, movie, tv, game, music.
	Category string `json:"category"`

	Title    string `json:"title"`
	CoverURL string `json:"cover_image_url"`

	// Rating is the community average, nil when unrated or stubbed.
	Rating *float64 `json:"rating,omitempty"`

	// Description is empty on stub records.
	Description string `json:"description,omitempty"`
}

// Clone returns a deep copy.
func (c CatalogItem) Clone() CatalogItem {
	out := c
	if c.Rating != nil {
		r := *c.Rating
		out.Rating = &r
	}
	return out
}

// HasDetail reports whether this record carries the full descriptive
// payload rather than a listing stub.
func (c CatalogItem) HasDetail() bool {
	return c.Description != "" && c.Rating != nil
}

// Merge resolves a fresh fetch against the currently held record.
// A detailed record is never replaced by a stub of the same id; anything
// else adopts the fresh record wholesale.
func (c CatalogItem) Merge(fresh CatalogItem) CatalogItem {
	if c.ID == fresh.ID && c.HasDetail() && !fresh.HasDetail() {
		return c.Clone()
	}
	return fresh.Clone()
}
