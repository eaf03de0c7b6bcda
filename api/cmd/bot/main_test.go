package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryDelayFromError(t *testing.T) {
	require.Zero(t, retryDelayFromError(nil))
	require.Equal(t, 7*time.Second, retryDelayFromError(errors.New("Too Many Requests: retry after 7")))
	require.Equal(t, 3*time.Second, retryDelayFromError(errors.New("too many requests")))
	require.Equal(t, time.Second, retryDelayFromError(errors.New("boom")))
}

func TestShortHash(t *testing.T) {
	a := shortHash("123:abc")
	require.Len(t, a, 16)
	require.Equal(t, a, shortHash("123:abc"))
	require.NotEqual(t, a, shortHash("123:abd"))
}
