// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package entity

// SocialStatus is the interaction state of one social post: the three
// toggles, their paired counts, and the post content.
//
// Outside a controller's optimistic window a toggle and its count move
// together. During the window they may diverge transiently; reconcile
// adopts the server's values for both rather than confirming the local
// guess, because another client may have moved the true count meanwhile.
type SocialStatus struct {
	ID string `json:"id"`

	Content string `json:"content"`

	Favorited  bool `json:"favourited"`
	Reblogged  bool `json:"reblogged"`
	Bookmarked bool `json:"bookmarked"`

	FavoritesCount int `json:"favourites_count"`
	ReblogsCount   int `json:"reblogs_count"`
	RepliesCount   int `json:"replies_count"`
}

// Clone returns a copy. SocialStatus has no reference fields, so a struct
// copy is already deep; the method exists to satisfy the controller's
// snapshot contract uniformly across kinds.
func (s SocialStatus) Clone() SocialStatus {
	return s
}

// Toggle identifies one of the three boolean interactions.
type Toggle string

const (
	ToggleFavorite Toggle = "favourite"
	ToggleReblog   Toggle = "reblog"
	ToggleBookmark Toggle = "bookmark"
)

// StatusDelta is a partial update to a status. Nil fields are untouched.
// Toggles are expressed as the desired end state; the controller derives
// the optimistic count adjustment from the current state.
type StatusDelta struct {
	Content *string

	Favorited  *bool
	Reblogged  *bool
	Bookmarked *bool
}

// ApplyDelta returns a copy of s with d applied. Counts move with their
// toggle: flipping a boolean adjusts the paired count by ±1. Counts never
// go below zero even if the server undercounted.
func (s SocialStatus) ApplyDelta(d StatusDelta) SocialStatus {
	out := s.Clone()
	if d.Content != nil {
		out.Content = *d.Content
	}
	if d.Favorited != nil && *d.Favorited != out.Favorited {
		out.Favorited = *d.Favorited
		out.FavoritesCount = adjustCount(out.FavoritesCount, out.Favorited)
	}
	if d.Reblogged != nil && *d.Reblogged != out.Reblogged {
		out.Reblogged = *d.Reblogged
		out.ReblogsCount = adjustCount(out.ReblogsCount, out.Reblogged)
	}
	if d.Bookmarked != nil {
		// Bookmarks are private; the API exposes no bookmark count.
		out.Bookmarked = *d.Bookmarked
	}
	return out
}

func adjustCount(count int, on bool) int {
	if on {
		return count + 1
	}
	if count > 0 {
		return count - 1
	}
	return 0
}
