// internal/datalogger/trigger_test.go
package datalogger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fixedSource returns the same row on every read.
type fixedSource struct {
	header []string
	row    []*float64
	mutex  sync.Mutex
	reads  int
}

func (s *fixedSource) Header() []string { return s.header }

func (s *fixedSource) Read(_ context.Context) []*float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.reads++
	return s.row
}

func (s *fixedSource) Reads() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.reads
}

func TestNewTimeTriggerValidation(t *testing.T) {
	source := &fixedSource{header: []string{"t_a_5"}}

	_, err := NewTimeTrigger(source, nil, 0, 0, uuid.New(), zap.NewNop())
	assert.Error(t, err)

	_, err = NewTimeTrigger(source, nil, time.Second, -time.Second, uuid.New(), zap.NewNop())
	assert.Error(t, err)

	trigger, err := NewTimeTrigger(source, nil, time.Second, 0, uuid.New(), zap.NewNop())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, trigger.RunID())
}

func TestRunStopsAtDuration(t *testing.T) {
	source := &fixedSource{header: []string{"t_a_5"}}
	store := NewLatestStore()

	trigger, err := NewTimeTrigger(source, []Output{store}, 10*time.Millisecond, 100*time.Millisecond, uuid.New(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, trigger.Run(context.Background()))

	// Roughly one read per interval; generous bounds to stay robust on
	// loaded machines.
	reads := source.Reads()
	assert.GreaterOrEqual(t, reads, 2)
	assert.LessOrEqual(t, reads, 20)
	assert.Equal(t, int64(reads), store.Cycles())

	header, _, _, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, []string{"t_a_5"}, header)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	source := &fixedSource{header: []string{"t_a_5"}}
	store := NewLatestStore()

	trigger, err := NewTimeTrigger(source, []Output{store}, 10*time.Millisecond, 0, uuid.New(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(60 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, trigger.Run(ctx))
	assert.GreaterOrEqual(t, source.Reads(), 1)
}

func TestRunSharesRowAcrossOutputs(t *testing.T) {
	value := 21.5
	source := &fixedSource{header: []string{"t_a_5"}, row: []*float64{&value}}
	first := NewLatestStore()
	second := NewLatestStore()

	trigger, err := NewTimeTrigger(source, []Output{first, second}, 10*time.Millisecond, 30*time.Millisecond, uuid.New(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, trigger.Run(context.Background()))

	_, firstValues, _, ok := first.Latest()
	require.True(t, ok)
	_, secondValues, _, ok := second.Latest()
	require.True(t, ok)
	assert.Equal(t, firstValues, secondValues)
	assert.Equal(t, first.Cycles(), second.Cycles())
}
