// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gateway executes typed requests against the remote API and
// classifies every failure into the module's error taxonomy.
//
// Controllers and orchestrators assemble a Descriptor wholesale (method,
// path, query, body) and hand it to a Gateway. They never see transport
// details; a typed response or a classified error comes back. The single
// Gateway interface is the seam for test doubles throughout the module.
package gateway

import (
	"context"
	"net/url"
)

// Descriptor encodes one API request. The calling controller or
// orchestrator supplies it wholesale; the gateway only executes it.
type Descriptor struct {
	// Method is the HTTP method.
	Method string

	// Path is relative to the gateway's base URL, e.g. "me/shelf/item/42".
	Path string

	// Query is appended to the URL. May be nil.
	Query url.Values

	// Body is JSON-encoded as the request body when non-nil.
	Body any

	// IdempotencyKey deduplicates replayed mutations server-side. The
	// controller stamps one per logical mutation, not per attempt.
	IdempotencyKey string
}

// Gateway executes a request and decodes the JSON response into out.
//
// A nil out discards the response body. Failures are always a classified
// *Error; callers dispatch with errors.Is against the package sentinels.
type Gateway interface {
	Execute(ctx context.Context, req Descriptor, out any) error
}
