// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tidewaterlabs/shelfsync/services/sync/controller"
	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
)

func runStatusShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	c, err := controller.ForStatus(app.reg, args[0], app.controllerDeps())
	if err != nil {
		return err
	}
	if err := c.Load(ctx, false); err != nil {
		return describeFailure(err)
	}
	printStatus(c.Current())
	return nil
}

func runStatusFavorite(cmd *cobra.Command, args []string) error {
	return runToggle(cmd, args[0], controller.ToggleFavorite)
}

func runStatusReblog(cmd *cobra.Command, args []string) error {
	return runToggle(cmd, args[0], controller.ToggleReblog)
}

func runStatusBookmark(cmd *cobra.Command, args []string) error {
	return runToggle(cmd, args[0], controller.ToggleBookmark)
}

func runToggle(cmd *cobra.Command, statusID string, toggle func(context.Context, *controller.StatusController) error) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	c, err := controller.ForStatus(app.reg, statusID, app.controllerDeps())
	if err != nil {
		return err
	}
	if err := c.Load(ctx, false); err != nil {
		return describeFailure(err)
	}
	if err := toggle(ctx, c); err != nil {
		return describeFailure(err)
	}
	printStatus(c.Current())
	return nil
}

func printStatus(s entity.SocialStatus) {
	fmt.Println("status: ", s.ID)
	if s.Content != "" {
		fmt.Println("content:", s.Content)
	}
	fmt.Printf("favorite: %-5v (%d)\n", s.Favorited, s.FavoritesCount)
	fmt.Printf("reblog:   %-5v (%d)\n", s.Reblogged, s.ReblogsCount)
	fmt.Printf("bookmark: %v\n", s.Bookmarked)
	fmt.Println("replies: ", s.RepliesCount)
}
