// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorSentinelMatching(t *testing.T) {
	cases := []struct {
		class    Class
		sentinel error
	}{
		{ClassUnauthorized, ErrUnauthorized},
		{ClassNotFound, ErrNotFound},
		{ClassNetworkUnavailable, ErrNetworkUnavailable},
		{ClassTimeout, ErrTimeout},
		{ClassServerRejected, ErrServerRejected},
		{ClassCancelled, ErrCancelled},
	}

	for _, tc := range cases {
		t.Run(string(tc.class), func(t *testing.T) {
			err := NewError(tc.class, 0, "", nil)
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestErrorPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(ClassNetworkUnavailable, 0, "", cause)

	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestErrorWrappedMatching(t *testing.T) {
	err := fmt.Errorf("load mark: %w", NewError(ClassNotFound, 404, "no such mark", nil))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsCancelled(err))
	assert.Equal(t, ClassNotFound, ClassOf(err))
}

func TestErrorMessageVerbatim(t *testing.T) {
	err := NewError(ClassServerRejected, 422, "rating_grade must be <= 10", nil)
	assert.Contains(t, err.Error(), "rating_grade must be <= 10")
}

func TestClassRetryable(t *testing.T) {
	assert.True(t, ClassTimeout.Retryable())
	assert.True(t, ClassNetworkUnavailable.Retryable())
	assert.False(t, ClassUnauthorized.Retryable())
	assert.False(t, ClassNotFound.Retryable())
	assert.False(t, ClassServerRejected.Retryable())
	assert.False(t, ClassCancelled.Retryable())
}

func TestClassOfUnclassified(t *testing.T) {
	assert.Equal(t, ClassServerRejected, ClassOf(errors.New("mystery")))
}
