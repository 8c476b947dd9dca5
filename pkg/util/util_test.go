package util

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

var fastRetry = RetryConfig{
	InitialInterval:     time.Millisecond,
	MaxInterval:         5 * time.Millisecond,
	MaxElapsedTime:      time.Second,
	RandomizationFactor: 0,
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", FirstNonEmpty("", " "))
	assert.Equal(t, "", FirstNonEmpty())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"staging", "eu"}, SplitList(" staging, ,eu,"))
	assert.Nil(t, SplitList(""))
}

func TestWaitReadyEventuallySucceeds(t *testing.T) {
	calls := 0
	err := WaitReady(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, fastRetry, 5)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitReadyGivesUp(t *testing.T) {
	calls := 0
	err := WaitReady(context.Background(), func() error {
		calls++
		return errors.New("down")
	}, fastRetry, 2)

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestLocalAddress(t *testing.T) {
	addr, err := LocalAddress(context.Background())
	if err != nil {
		t.Skipf("hostname does not resolve in this environment: %v", err)
	}
	assert.NotEmpty(t, addr)
}
