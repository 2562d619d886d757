package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpulse/internal/alert"
)

type stubSource struct {
	records []alert.Record
	err     error
	ctxErr  error
}

func (s *stubSource) Records(ctx context.Context) ([]alert.Record, error) {
	if s.ctxErr != nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.records, s.err
}

func TestLoaderFiltersForIdentity(t *testing.T) {
	src := &stubSource{records: []alert.Record{
		{alert.ColumnOwner: "a@x.io", alert.ColumnSymbol: "AAPL", alert.ColumnStatus: alert.StatusActive},
		{alert.ColumnOwner: "b@x.io", alert.ColumnSymbol: "MSFT", alert.ColumnStatus: alert.StatusActive},
	}}

	rules, err := NewLoader(src, 0, zerolog.Nop()).Load(context.Background(), "a@x.io")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "AAPL", rules[0].Symbol)
}

func TestLoaderFailureYieldsEmpty(t *testing.T) {
	src := &stubSource{err: errors.New("sheet down")}

	rules, err := NewLoader(src, 0, zerolog.Nop()).Load(context.Background(), "a@x.io")
	require.Error(t, err)
	require.NotNil(t, rules)
	assert.Empty(t, rules)
}

func TestLoaderTimeout(t *testing.T) {
	src := &stubSource{ctxErr: context.DeadlineExceeded}

	rules, err := NewLoader(src, 10*time.Millisecond, zerolog.Nop()).Load(context.Background(), "a@x.io")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, rules)
}
