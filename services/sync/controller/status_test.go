// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package controller

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
	"github.com/tidewaterlabs/shelfsync/services/sync/registry"
)

func serverStatus() entity.SocialStatus {
	return entity.SocialStatus{
		ID:             "status-1",
		Content:        "finished the trilogy",
		Favorited:      false,
		FavoritesCount: 5,
		ReblogsCount:   2,
		RepliesCount:   1,
	}
}

func newLoadedStatus(t *testing.T, gw *fakeGateway) *StatusController {
	t.Helper()
	reg := registry.New(nil)
	c, err := ForStatus(reg, "status-1", testDeps(gw))
	require.NoError(t, err)
	require.NoError(t, c.Load(context.Background(), false))
	return c
}

func TestToggleFavoriteAdoptsServerCount(t *testing.T) {
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		if req.Method == "GET" {
			return serverStatus(), nil
		}
		require.Equal(t, "statuses/status-1/favourite", req.Path)
		// Another client favorited meanwhile: the true count is 12, not
		// the local guess of 6. The server's value must win.
		s := serverStatus()
		s.Favorited = true
		s.FavoritesCount = 12
		return s, nil
	}
	c := newLoadedStatus(t, gw)

	require.NoError(t, ToggleFavorite(context.Background(), c))

	got := c.Current()
	assert.True(t, got.Favorited)
	assert.Equal(t, 12, got.FavoritesCount, "count is replaced with server truth, not the ±1 guess")
}

func TestToggleFavoriteOffHitsUnfavourite(t *testing.T) {
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		if req.Method == "GET" {
			s := serverStatus()
			s.Favorited = true
			s.FavoritesCount = 6
			return s, nil
		}
		require.Equal(t, "statuses/status-1/unfavourite", req.Path)
		s := serverStatus()
		s.Favorited = false
		s.FavoritesCount = 5
		return s, nil
	}
	c := newLoadedStatus(t, gw)

	require.NoError(t, ToggleFavorite(context.Background(), c))
	got := c.Current()
	assert.False(t, got.Favorited)
	assert.Equal(t, 5, got.FavoritesCount)
}

func TestToggleFailureInvertsExactly(t *testing.T) {
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		if req.Method == "GET" {
			return serverStatus(), nil
		}
		return nil, gateway.NewError(gateway.ClassNetworkUnavailable, 0, "", nil)
	}
	c := newLoadedStatus(t, gw)
	before := c.Current()

	err := ToggleReblog(context.Background(), c)
	assert.ErrorIs(t, err, gateway.ErrNetworkUnavailable)

	got := c.Current()
	assert.Equal(t, before.Reblogged, got.Reblogged, "boolean inverted back")
	assert.Equal(t, before.ReblogsCount, got.ReblogsCount, "count adjustment undone, not recomputed")
	assert.Equal(t, before, got)
}

func TestToggleBookmarkHasNoCount(t *testing.T) {
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		if req.Method == "GET" {
			return serverStatus(), nil
		}
		require.Equal(t, "statuses/status-1/bookmark", req.Path)
		s := serverStatus()
		s.Bookmarked = true
		return s, nil
	}
	c := newLoadedStatus(t, gw)
	before := c.Current()

	require.NoError(t, ToggleBookmark(context.Background(), c))

	got := c.Current()
	assert.True(t, got.Bookmarked)
	assert.Equal(t, before.FavoritesCount, got.FavoritesCount)
	assert.Equal(t, before.ReblogsCount, got.ReblogsCount)
}

func TestStatusContentEdit(t *testing.T) {
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		if req.Method == "GET" {
			return serverStatus(), nil
		}
		require.Equal(t, "PUT", req.Method)
		require.Equal(t, "statuses/status-1", req.Path)
		s := serverStatus()
		s.Content = "finished the trilogy, starting the prequels"
		return s, nil
	}
	c := newLoadedStatus(t, gw)

	err := c.Mutate(context.Background(), entity.StatusDelta{
		Content: ptr("finished the trilogy, starting the prequels"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.Current().Content, "finished the trilogy,"))
}
