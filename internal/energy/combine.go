package energy

import (
	"context"
	"slices"
	"sync"
)

// combineLatest joins sources into one stream of snapshots holding the most
// recent value from each source, in source order. Nothing is emitted until
// every source has produced once; after that every upstream value yields a
// new snapshot. It is a last-value join, not a zip: a fast source can emit
// many times while a slow one repeats its cached value.
//
// The cache lives in a single goroutine, so no locking is needed. The output
// closes when ctx ends or every source has closed.
func combineLatest[T any](ctx context.Context, sources ...<-chan T) <-chan []T {
	type indexed struct {
		i int
		v T
	}

	fanIn := make(chan indexed)
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case v, ok := <-src:
					if !ok {
						return
					}
					select {
					case fanIn <- indexed{i: i, v: v}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(fanIn)
	}()

	out := make(chan []T)
	go func() {
		defer close(out)
		latest := make([]T, len(sources))
		seen := make([]bool, len(sources))
		pending := len(sources)
		for {
			select {
			case <-ctx.Done():
				return
			case in, ok := <-fanIn:
				if !ok {
					return
				}
				latest[in.i] = in.v
				if !seen[in.i] {
					seen[in.i] = true
					pending--
				}
				if pending > 0 {
					continue
				}
				select {
				case out <- slices.Clone(latest):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
