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

	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
	"github.com/tidewaterlabs/shelfsync/services/sync/orchestrator"
)

func runShelfList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	shelf := entity.ShelfState(args[0])
	if !shelf.Valid() {
		return fmt.Errorf("unknown shelf %q", args[0])
	}
	refresh, _ := cmd.Flags().GetBool("refresh")
	all, _ := cmd.Flags().GetBool("all")

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	o := orchestrator.NewShelf(app.sess.Scope(), shelf, app.orchestratorDeps(),
		orchestrator.WithPageSize(app.cfg.Listing.PageSize),
		orchestrator.WithListTTL(app.cfg.Cache.ListTTL),
	)
	if err := o.LoadPage(ctx, 1, refresh); err != nil {
		return describeFailure(err)
	}
	if all {
		for {
			before := len(o.Items())
			if err := o.LoadNext(ctx); err != nil {
				return describeFailure(err)
			}
			if len(o.Items()) == before {
				break
			}
		}
	}

	items := o.Items()
	if len(items) == 0 {
		fmt.Printf("no items on the %s shelf\n", shelf)
		return nil
	}
	for _, m := range items {
		rating := " -"
		if m.Rating != nil {
			rating = fmt.Sprintf("%2d", *m.Rating)
		}
		fmt.Printf("%s  %s  %s\n", rating, m.ItemID, string(m.Shelf))
	}
	if total := o.TotalPages(); total > 1 && !all {
		fmt.Printf("(%d pages, use --all to fetch everything)\n", total)
	}
	return nil
}
