// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package entity

// Page is the paginated listing envelope the API returns.
//
// Only page 1 of a listing is persisted to the cache; later pages live
// for the session only.
type Page[T any] struct {
	Items []T `json:"data"`

	// PageIndex is 1-based.
	PageIndex int `json:"page"`

	// TotalPages is the server's page count at response time. It can
	// shrink between pages; callers clamp rather than trust it blindly.
	TotalPages int `json:"pages"`
}
