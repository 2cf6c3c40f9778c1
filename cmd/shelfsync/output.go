// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
)

// describeFailure turns a classified gateway error into a message a
// person at a terminal can act on. Unclassified errors pass through.
func describeFailure(err error) error {
	switch gateway.ClassOf(err) {
	case gateway.ClassUnauthorized:
		return fmt.Errorf("not signed in: provide --token or set SHELFSYNC_TOKEN")
	case gateway.ClassNotFound:
		return fmt.Errorf("the server has no such record")
	case gateway.ClassNetworkUnavailable:
		return fmt.Errorf("server unreachable, try again when back online: %w", err)
	case gateway.ClassTimeout:
		return fmt.Errorf("request timed out, try again: %w", err)
	case gateway.ClassCancelled:
		return nil
	default:
		return err
	}
}
