// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"net/url"
	"strconv"

	"github.com/tidewaterlabs/shelfsync/services/sync/cache"
	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
)

// ShelfSource lists the session's marks on one shelf.
type ShelfSource struct {
	Scope string
	Shelf entity.ShelfState
}

func (s ShelfSource) CacheKey() string {
	return cache.ListKey(s.Scope, "shelf", string(s.Shelf))
}

func (s ShelfSource) PageRequest(page int) gateway.Descriptor {
	return gateway.Descriptor{
		Method: "GET",
		Path:   "me/shelf/list/" + string(s.Shelf),
		Query:  url.Values{"page": {strconv.Itoa(page)}},
	}
}

func (s ShelfSource) ItemID(m entity.Mark) string { return m.ItemID }

// NewShelf returns an orchestrator over one shelf listing.
func NewShelf(scope string, shelf entity.ShelfState, deps Deps, opts ...Option) *Orchestrator[entity.Mark] {
	return New[entity.Mark](ShelfSource{Scope: scope, Shelf: shelf}, deps, opts...)
}

// PostHistorySource lists an account's post history.
type PostHistorySource struct {
	Scope     string
	AccountID string
}

func (s PostHistorySource) CacheKey() string {
	return cache.ListKey(s.Scope, "posts", s.AccountID)
}

func (s PostHistorySource) PageRequest(page int) gateway.Descriptor {
	return gateway.Descriptor{
		Method: "GET",
		Path:   "accounts/" + s.AccountID + "/statuses",
		Query:  url.Values{"page": {strconv.Itoa(page)}},
	}
}

func (s PostHistorySource) ItemID(st entity.SocialStatus) string { return st.ID }

// NewPostHistory returns an orchestrator over one account's posts.
func NewPostHistory(scope, accountID string, deps Deps, opts ...Option) *Orchestrator[entity.SocialStatus] {
	return New[entity.SocialStatus](PostHistorySource{Scope: scope, AccountID: accountID}, deps, opts...)
}

// CatalogDetailSource loads one catalog item's full record. Catalog
// records are shared across accounts, so they cache under a fixed scope
// rather than the session's.
type CatalogDetailSource struct {
	ItemID string
}

// CatalogScope is the cache scope for account-independent catalog data.
const CatalogScope = "catalog"

func (s CatalogDetailSource) CacheKey() string {
	return CatalogScope + "/item/" + s.ItemID
}

func (s CatalogDetailSource) FetchRequest() gateway.Descriptor {
	return gateway.Descriptor{Method: "GET", Path: "catalog/item/" + s.ItemID}
}

func (s CatalogDetailSource) Merge(current, fresh entity.CatalogItem) entity.CatalogItem {
	return current.Merge(fresh)
}

// NewCatalogDetail returns a detail loader for one catalog item.
func NewCatalogDetail(itemID string, deps Deps, opts ...Option) *Detail[entity.CatalogItem] {
	return NewDetail[entity.CatalogItem](CatalogDetailSource{ItemID: itemID}, deps, opts...)
}
