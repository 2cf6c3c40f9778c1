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
)

var version = "1.0.0"

// --- Global Command Variables ---
var (
	configPath string
	accountID  string
	authToken  string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "shelfsync",
		Short: "A cli for the shelfsync entity synchronization layer",
		Long: `Shelfsync keeps a local, offline-friendly copy of your shelf marks,
posts, and catalog items in sync with the server, with optimistic
mutations and a tiered memory/disk cache.`,
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the shelfsync version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("shelfsync", version)
		},
	}

	// --- Marks ---
	markCmd = &cobra.Command{
		Use:   "mark",
		Short: "Inspect and edit your shelf mark on a catalog item",
	}
	markGetCmd = &cobra.Command{
		Use:   "get [item-id]",
		Short: "Show your mark on an item",
		Args:  cobra.ExactArgs(1),
		RunE:  runMarkGet,
	}
	markSetCmd = &cobra.Command{
		Use:   "set [item-id]",
		Short: "Create or update your mark on an item",
		Args:  cobra.ExactArgs(1),
		RunE:  runMarkSet,
	}
	markDeleteCmd = &cobra.Command{
		Use:   "delete [item-id]",
		Short: "Remove your mark from an item",
		Args:  cobra.ExactArgs(1),
		RunE:  runMarkDelete,
	}

	// --- Statuses ---
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Inspect and toggle interactions on a post",
	}
	statusShowCmd = &cobra.Command{
		Use:   "show [status-id]",
		Short: "Show a post's interaction state",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatusShow,
	}
	statusFavoriteCmd = &cobra.Command{
		Use:   "favorite [status-id]",
		Short: "Toggle favorite on a post",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatusFavorite,
	}
	statusReblogCmd = &cobra.Command{
		Use:   "reblog [status-id]",
		Short: "Toggle reblog on a post",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatusReblog,
	}
	statusBookmarkCmd = &cobra.Command{
		Use:   "bookmark [status-id]",
		Short: "Toggle bookmark on a post",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatusBookmark,
	}

	// --- Listings ---
	shelfCmd = &cobra.Command{
		Use:   "shelf [wishlist|progress|complete|dropped]",
		Short: "List your marks on one shelf",
		Args:  cobra.ExactArgs(1),
		RunE:  runShelfList,
	}

	// --- Catalog ---
	itemCmd = &cobra.Command{
		Use:   "item [item-id]",
		Short: "Show a catalog item's detail record",
		Args:  cobra.ExactArgs(1),
		RunE:  runItemShow,
	}

	// --- Session ---
	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Purge all cached data and controllers for the account",
		RunE:  runLogout,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to shelfsync.yaml")
	rootCmd.PersistentFlags().StringVar(&accountID, "account", "", "account id (scopes the local cache)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "API bearer token (or SHELFSYNC_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override configured log level")

	markSetCmd.Flags().String("shelf", "", "shelf state: wishlist, progress, complete, dropped")
	markSetCmd.Flags().String("visibility", "", "post visibility: public, unlisted, private")
	markSetCmd.Flags().String("comment", "", "comment text, empty string clears")
	markSetCmd.Flags().Int("rating", -1, "rating 1..10, 0 clears")
	markSetCmd.Flags().StringSlice("tags", nil, "replace the tag list")

	shelfCmd.Flags().Bool("refresh", false, "discard accumulated pages and reload")
	shelfCmd.Flags().Bool("all", false, "follow pagination to the last page")

	markCmd.AddCommand(markGetCmd, markSetCmd, markDeleteCmd)
	statusCmd.AddCommand(statusShowCmd, statusFavoriteCmd, statusReblogCmd, statusBookmarkCmd)
	rootCmd.AddCommand(versionCmd, markCmd, statusCmd, shelfCmd, itemCmd, logoutCmd)
}
