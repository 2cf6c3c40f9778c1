// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidewaterlabs/shelfsync/services/sync/controller"
	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
)

func runMarkGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	c, err := controller.ForMark(app.reg, args[0], app.controllerDeps())
	if err != nil {
		return err
	}
	if err := c.Load(ctx, false); err != nil {
		return describeFailure(err)
	}
	printMark(args[0], c.Current())
	return nil
}

func runMarkSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	delta, err := markDeltaFromFlags(cmd)
	if err != nil {
		return err
	}

	c, err := controller.ForMark(app.reg, args[0], app.controllerDeps())
	if err != nil {
		return err
	}
	// Load first so the delta applies over current server state, not a
	// zero value. A missing mark is fine; the write creates it.
	if err := c.Load(ctx, false); err != nil {
		return describeFailure(err)
	}
	if err := c.Mutate(ctx, delta); err != nil {
		return describeFailure(err)
	}
	printMark(args[0], c.Current())
	return nil
}

func runMarkDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	c, err := controller.ForMark(app.reg, args[0], app.controllerDeps())
	if err != nil {
		return err
	}
	if err := c.Delete(ctx); err != nil {
		return describeFailure(err)
	}
	fmt.Println("mark removed")
	return nil
}

func markDeltaFromFlags(cmd *cobra.Command) (entity.MarkDelta, error) {
	var delta entity.MarkDelta

	if cmd.Flags().Changed("shelf") {
		v, _ := cmd.Flags().GetString("shelf")
		shelf := entity.ShelfState(v)
		if !shelf.Valid() {
			return delta, fmt.Errorf("unknown shelf %q", v)
		}
		delta.Shelf = &shelf
	}
	if cmd.Flags().Changed("visibility") {
		v, _ := cmd.Flags().GetString("visibility")
		vis := entity.Visibility(v)
		if !vis.Valid() {
			return delta, fmt.Errorf("unknown visibility %q", v)
		}
		delta.Visibility = &vis
	}
	if cmd.Flags().Changed("comment") {
		v, _ := cmd.Flags().GetString("comment")
		delta.Comment = &v
	}
	if cmd.Flags().Changed("rating") {
		v, _ := cmd.Flags().GetInt("rating")
		delta.Rating = &v
	}
	if cmd.Flags().Changed("tags") {
		v, _ := cmd.Flags().GetStringSlice("tags")
		delta.Tags = &v
	}
	return delta, nil
}

func printMark(itemID string, m entity.Mark) {
	fmt.Println("item:      ", itemID)
	fmt.Println("shelf:     ", string(m.Shelf))
	fmt.Println("visibility:", string(m.Visibility))
	if m.Rating != nil {
		fmt.Println("rating:    ", *m.Rating)
	} else {
		fmt.Println("rating:     unrated")
	}
	if m.Comment != nil {
		fmt.Println("comment:   ", *m.Comment)
	}
	if len(m.Tags) > 0 {
		fmt.Println("tags:      ", strings.Join(m.Tags, ", "))
	}
	if m.PostID != "" {
		fmt.Println("post:      ", m.PostID)
	}
}
