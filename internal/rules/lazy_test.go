package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyReusesWithinTTL(t *testing.T) {
	opened, closed := 0, 0
	now := time.Unix(1_700_000_000, 0)

	l := NewLazy(30*time.Minute,
		func(context.Context) (int, error) { opened++; return opened, nil },
		func(int) { closed++ },
	)
	l.now = func() time.Time { return now }

	first, err := l.Get(context.Background())
	require.NoError(t, err)
	now = now.Add(29 * time.Minute)
	second, _ := l.Get(context.Background())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, opened)

	now = now.Add(time.Minute)
	third, _ := l.Get(context.Background())
	assert.Equal(t, 2, third)
	assert.Equal(t, 1, closed)
}

func TestLazyOpenErrorIsRetried(t *testing.T) {
	calls := 0
	l := NewLazy(time.Minute, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("dial failed")
		}
		return "conn", nil
	}, nil)

	_, err := l.Get(context.Background())
	require.Error(t, err)

	v, err := l.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "conn", v)
}

func TestLazyReset(t *testing.T) {
	opened, closed := 0, 0
	l := NewLazy(time.Hour,
		func(context.Context) (int, error) { opened++; return opened, nil },
		func(int) { closed++ },
	)

	_, _ = l.Get(context.Background())
	l.Reset()
	v, _ := l.Get(context.Background())

	assert.Equal(t, 2, v)
	assert.Equal(t, 1, closed)

	l.Close()
	assert.Equal(t, 2, closed)
}
