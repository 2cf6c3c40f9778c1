// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tidewaterlabs/shelfsync/services/sync/session"
)

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	teardown := &session.Teardown{Cache: app.store, Registry: app.reg, Log: app.log}
	teardown.Logout(ctx, app.sess)
	fmt.Printf("cleared local data for account %q\n", app.sess.Scope())
	return nil
}
