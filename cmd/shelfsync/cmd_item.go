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

	"github.com/tidewaterlabs/shelfsync/services/sync/orchestrator"
)

func runItemShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	d := orchestrator.NewCatalogDetail(args[0], app.orchestratorDeps())
	if err := d.Load(ctx); err != nil {
		return describeFailure(err)
	}

	item, ok := d.Value()
	if !ok {
		return fmt.Errorf("no record for item %s", args[0])
	}
	fmt.Println("title:   ", item.Title)
	fmt.Println("category:", item.Category)
	if item.Rating != nil {
		fmt.Printf("rating:   %.1f\n", *item.Rating)
	}
	if item.Description != "" {
		fmt.Println()
		fmt.Println(item.Description)
	}
	return nil
}
