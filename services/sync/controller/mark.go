// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package controller

import (
	"time"

	"github.com/tidewaterlabs/shelfsync/services/sync/cache"
	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
	"github.com/tidewaterlabs/shelfsync/services/sync/registry"
)

// MarkController manages one shelf mark, addressed by catalog item id.
type MarkController = Controller[entity.Mark, entity.MarkDelta]

// ForMark returns the single live controller for the mark on itemID in
// the session's scope, creating it if needed.
func ForMark(reg *registry.Registry, itemID string, deps Deps) (*MarkController, error) {
	id, err := entity.NewIdentity(entity.KindMark, itemID, deps.Session.Scope())
	if err != nil {
		return nil, err
	}
	deps.Registry = reg
	return registry.For(reg, id, func() *MarkController {
		return New[entity.Mark, entity.MarkDelta](markBinding{id: id}, deps)
	}), nil
}

// markWritePayload is the wire body for creating or updating a mark.
//
// RatingGrade is a pointer with omitempty: a cleared rating (nil on the
// entity) is omitted from the payload entirely, never sent as 0. The
// server reads absence as "clear", so the sentinel stays off the wire.
type markWritePayload struct {
	ShelfType   entity.ShelfState `json:"shelf_type"`
	Visibility  entity.Visibility `json:"visibility"`
	CommentText string            `json:"comment_text"`
	RatingGrade *int              `json:"rating_grade,omitempty"`
	Tags        []string          `json:"tags"`
	CreatedTime *time.Time        `json:"created_time,omitempty"`
}

// markBinding maps Mark semantics onto the shelf API. The server keys
// marks by item id and treats a second create as an update, so every
// operation addresses the same path.
type markBinding struct {
	id entity.Identity
}

func (b markBinding) Identity() entity.Identity { return b.id }
func (b markBinding) CacheKey() string          { return cache.EntityKey(b.id) }

func (b markBinding) Snapshot(m entity.Mark) entity.Mark { return m.Clone() }

func (b markBinding) Apply(m entity.Mark, d entity.MarkDelta) entity.Mark {
	out := m.ApplyDelta(d)
	out.ItemID = b.id.ID
	return out
}

func (b markBinding) Validate(d entity.MarkDelta) error { return d.Validate() }

func (b markBinding) path() string { return "me/shelf/item/" + b.id.ID }

func (b markBinding) FetchRequest() gateway.Descriptor {
	return gateway.Descriptor{Method: "GET", Path: b.path()}
}

func (b markBinding) MutateRequest(optimistic entity.Mark, _ entity.MarkDelta) gateway.Descriptor {
	payload := markWritePayload{
		ShelfType:   optimistic.Shelf,
		Visibility:  optimistic.Visibility,
		RatingGrade: optimistic.Rating,
		Tags:        optimistic.Tags,
		CreatedTime: optimistic.CreatedAt,
	}
	if optimistic.Comment != nil {
		payload.CommentText = *optimistic.Comment
	}
	if payload.Tags == nil {
		payload.Tags = []string{}
	}
	return gateway.Descriptor{Method: "POST", Path: b.path(), Body: payload}
}

func (b markBinding) DeleteRequest() gateway.Descriptor {
	return gateway.Descriptor{Method: "DELETE", Path: b.path()}
}
