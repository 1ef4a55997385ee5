package energy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineLatest_WaitsForEverySource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := make(chan int), make(chan int)
	out := combineLatest(ctx, a, b)

	a <- 1
	a <- 2
	select {
	case v := <-out:
		t.Fatalf("emitted %v before b produced", v)
	case <-time.After(20 * time.Millisecond):
	}

	b <- 10
	assert.Equal(t, []int{2, 10}, recv(t, out))
}

// TestCombineLatest_LastValueJoin: after warm-up every emission re-uses the
// cached value of the quiet source.
func TestCombineLatest_LastValueJoin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := make(chan int), make(chan int)
	out := combineLatest(ctx, a, b)

	a <- 1
	b <- 10
	assert.Equal(t, []int{1, 10}, recv(t, out))
	a <- 2
	assert.Equal(t, []int{2, 10}, recv(t, out))
	a <- 3
	assert.Equal(t, []int{3, 10}, recv(t, out))
	b <- 20
	assert.Equal(t, []int{3, 20}, recv(t, out))
}

func TestCombineLatest_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := combineLatest(ctx, make(chan int), make(chan int))
	cancel()
	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("output not closed after cancel")
	}
}

func TestCombineLatest_ClosesWhenSourcesClose(t *testing.T) {
	a, b := make(chan int), make(chan int)
	out := combineLatest(context.Background(), a, b)
	close(a)
	close(b)
	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("output not closed after sources closed")
	}
}

func TestCombineTDEE_RecomputesOnAnySource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bmr, neat, active := make(chan Sample), make(chan Sample), make(chan Sample)
	out := CombineTDEE(ctx, bmr, neat, active)

	bmr <- Sample{Component: ComponentBMR, Reading: Measured(1700)}
	neat <- Sample{Component: ComponentNEAT, Reading: NoData()}
	active <- Sample{Component: ComponentActive, Reading: NoData()}
	first := recv(t, out)
	require.NoError(t, first.Err)
	assert.Equal(t, 1700.0, first.TDEE.Total)

	neat <- Sample{Component: ComponentNEAT, Reading: Measured(200)}
	assert.Equal(t, 1900.0, recv(t, out).TDEE.Total)

	active <- Sample{Component: ComponentActive, Reading: Degrade(ErrPermissionDenied)}
	s := recv(t, out)
	assert.Equal(t, 1900.0, s.TDEE.Total)
	assert.Equal(t, StatusPermissionDenied, s.TDEE.Active.Status())
}

// TestCombineTDEE_ProfileMissing: the sum still forms with a zero BMR, but the
// sample carries the error.
func TestCombineTDEE_ProfileMissing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bmr, neat, active := make(chan Sample), make(chan Sample), make(chan Sample)
	out := CombineTDEE(ctx, bmr, neat, active)

	bmr <- Sample{Component: ComponentBMR, Err: ErrProfileNotConfigured}
	neat <- Sample{Component: ComponentNEAT, Reading: Measured(200)}
	active <- Sample{Component: ComponentActive, Reading: Measured(300)}
	s := recv(t, out)
	assert.ErrorIs(t, s.Err, ErrProfileNotConfigured)
	assert.Equal(t, 500.0, s.TDEE.Total)
}
