// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapUnknownKeepsCode(t *testing.T) {
	err := InsufficientFunds.WithFormat("balance %d is less than %d", 1, 2)
	wrapped := UnknownError.Wrap(err)
	require.Equal(t, InsufficientFunds, Code(wrapped))
	require.True(t, Is(wrapped, InsufficientFunds))
	require.False(t, Is(wrapped, IdentityMismatch))
}

func TestWithFormatCause(t *testing.T) {
	cause := IdentityMismatch.With("vault does not match")
	err := UnknownError.WithFormat("buy tokens: %w", cause)
	require.Equal(t, IdentityMismatch, Code(err))
	require.EqualError(t, err, "buy tokens: vault does not match")
}

func TestKnownCodeOverridesCause(t *testing.T) {
	err := BadRequest.WithCauseAndFormat(io.EOF, "decode instruction")
	require.Equal(t, BadRequest, Code(err))
	require.ErrorIs(t, err, BadRequest)
	require.Equal(t, UnknownError, err.Cause.Code)
}

func TestCodeOfPlainErrors(t *testing.T) {
	require.Equal(t, OK, Code(nil))
	require.Equal(t, UnknownError, Code(io.EOF))
	require.Equal(t, NotFound, Code(NotFound))
	require.Equal(t, NotFound, Code(fmt.Errorf("load: %w", NotFound)))
}

func TestStatusText(t *testing.T) {
	for s := range statusNames {
		b, err := s.MarshalText()
		require.NoError(t, err)

		var v Status
		require.NoError(t, v.UnmarshalText(b))
		require.Equal(t, s, v)
	}

	var v Status
	require.Error(t, v.UnmarshalText([]byte("not-a-status")))
	require.Equal(t, "Status:7", Status(7).String())
}

func TestPrintWithCallStack(t *testing.T) {
	trackLocation = true
	t.Cleanup(func() { trackLocation = false })

	err := AllocationFailure.With("payer cannot cover rent")
	require.NotEmpty(t, err.CallStack)
	require.Contains(t, err.Print(), "TestPrintWithCallStack")
	require.Contains(t, fmt.Sprintf("%+v", err), "payer cannot cover rent")
}
