// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package controller

import (
	"context"

	"github.com/tidewaterlabs/shelfsync/services/sync/cache"
	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
	"github.com/tidewaterlabs/shelfsync/services/sync/registry"
)

// StatusController manages the interaction state of one social post.
type StatusController = Controller[entity.SocialStatus, entity.StatusDelta]

// ForStatus returns the single live controller for statusID in the
// session's scope, creating it if needed.
func ForStatus(reg *registry.Registry, statusID string, deps Deps) (*StatusController, error) {
	id, err := entity.NewIdentity(entity.KindSocialStatus, statusID, deps.Session.Scope())
	if err != nil {
		return nil, err
	}
	deps.Registry = reg
	return registry.For(reg, id, func() *StatusController {
		return New[entity.SocialStatus, entity.StatusDelta](statusBinding{id: id}, deps)
	}), nil
}

// ToggleFavorite flips the favorite state. The optimistic step moves the
// boolean and its count together; the server's response then replaces
// both wholesale, since another client may have moved the true count.
func ToggleFavorite(ctx context.Context, c *StatusController) error {
	want := !c.Current().Favorited
	return c.Mutate(ctx, entity.StatusDelta{Favorited: &want})
}

// ToggleReblog flips the reblog state.
func ToggleReblog(ctx context.Context, c *StatusController) error {
	want := !c.Current().Reblogged
	return c.Mutate(ctx, entity.StatusDelta{Reblogged: &want})
}

// ToggleBookmark flips the bookmark state. Bookmarks are private and
// carry no count.
func ToggleBookmark(ctx context.Context, c *StatusController) error {
	want := !c.Current().Bookmarked
	return c.Mutate(ctx, entity.StatusDelta{Bookmarked: &want})
}

// statusBinding maps SocialStatus onto the statuses API. Each toggle has
// its own action endpoint pair and every action returns the full updated
// status, which is what makes wholesale reconciliation possible.
type statusBinding struct {
	id entity.Identity
}

func (b statusBinding) Identity() entity.Identity { return b.id }
func (b statusBinding) CacheKey() string          { return cache.EntityKey(b.id) }

func (b statusBinding) Snapshot(s entity.SocialStatus) entity.SocialStatus { return s.Clone() }

func (b statusBinding) Apply(s entity.SocialStatus, d entity.StatusDelta) entity.SocialStatus {
	out := s.ApplyDelta(d)
	out.ID = b.id.ID
	return out
}

func (b statusBinding) Validate(entity.StatusDelta) error { return nil }

func (b statusBinding) path() string { return "statuses/" + b.id.ID }

func (b statusBinding) FetchRequest() gateway.Descriptor {
	return gateway.Descriptor{Method: "GET", Path: b.path()}
}

func (b statusBinding) MutateRequest(_ entity.SocialStatus, d entity.StatusDelta) gateway.Descriptor {
	switch {
	case d.Favorited != nil:
		return b.action(*d.Favorited, "favourite", "unfavourite")
	case d.Reblogged != nil:
		return b.action(*d.Reblogged, "reblog", "unreblog")
	case d.Bookmarked != nil:
		return b.action(*d.Bookmarked, "bookmark", "unbookmark")
	default:
		body := map[string]string{"status": ""}
		if d.Content != nil {
			body["status"] = *d.Content
		}
		return gateway.Descriptor{Method: "PUT", Path: b.path(), Body: body}
	}
}

func (b statusBinding) action(on bool, set, unset string) gateway.Descriptor {
	name := unset
	if on {
		name = set
	}
	return gateway.Descriptor{Method: "POST", Path: b.path() + "/" + name}
}

func (b statusBinding) DeleteRequest() gateway.Descriptor {
	return gateway.Descriptor{Method: "DELETE", Path: b.path()}
}
