// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
)

func deltaFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "set"}
	cmd.Flags().String("shelf", "", "")
	cmd.Flags().String("visibility", "", "")
	cmd.Flags().String("comment", "", "")
	cmd.Flags().Int("rating", -1, "")
	cmd.Flags().StringSlice("tags", nil, "")
	return cmd
}

func TestMarkDeltaFromFlags(t *testing.T) {
	cmd := deltaFlagsCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--shelf", "complete", "--rating", "0", "--comment", "",
	}))

	delta, err := markDeltaFromFlags(cmd)
	require.NoError(t, err)

	require.NotNil(t, delta.Shelf)
	assert.Equal(t, entity.ShelfComplete, *delta.Shelf)
	require.NotNil(t, delta.Rating)
	assert.Equal(t, 0, *delta.Rating, "explicit 0 means clear the rating")
	require.NotNil(t, delta.Comment)
	assert.Empty(t, *delta.Comment, "explicit empty comment means clear it")
	assert.Nil(t, delta.Visibility, "untouched flags leave fields nil")
	assert.Nil(t, delta.Tags)
}

func TestMarkDeltaFromFlagsRejectsUnknownShelf(t *testing.T) {
	cmd := deltaFlagsCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--shelf", "abandoned"}))

	_, err := markDeltaFromFlags(cmd)
	assert.Error(t, err)
}

func TestDescribeFailure(t *testing.T) {
	assert.Nil(t, describeFailure(gateway.NewError(gateway.ClassCancelled, 0, "", nil)),
		"cancelled operations are silent")

	err := describeFailure(gateway.NewError(gateway.ClassUnauthorized, 401, "", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHELFSYNC_TOKEN")

	plain := errors.New("boom")
	assert.Equal(t, plain, describeFailure(plain))
}
