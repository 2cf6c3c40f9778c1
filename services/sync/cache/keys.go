// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"strings"

	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
)

// Key layout: "scope/kind/id[/sub]". Scope leads so RemoveAll(scope) is
// one prefix operation; the kind segment keeps a mark and an item for
// the same remote id from colliding.

// EntityKey returns the cache key for an entity, with optional
// sub-resource tags appended.
func EntityKey(id entity.Identity, sub ...string) string {
	if len(sub) == 0 {
		return id.String()
	}
	return id.String() + "/" + strings.Join(sub, "/")
}

// ListKey returns the cache key for page 1 of a named listing under a
// scope, e.g. ListKey("session-a", "shelf", "progress").
func ListKey(scope string, parts ...string) string {
	return scope + "/list/" + strings.Join(parts, "/")
}

// ScopePrefix returns the prefix covering every key under a scope.
func ScopePrefix(scope string) string {
	return scope + "/"
}
