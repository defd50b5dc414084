package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// PanicError carries a recovered panic value and the stack it was raised on
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recovered wraps a recover() result, returning nil when nothing panicked
func Recovered(r interface{}) *PanicError {
	if r == nil {
		return nil
	}
	return &PanicError{Value: r, Stack: debug.Stack()}
}

// RunBatch calls fn for every item concurrently and returns once all calls
// have returned. Results keep the order of items. A call that panics leaves
// the zero value in its results slot and a *PanicError in the same errs slot.
func RunBatch[T any, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) R) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	if len(items) == 0 {
		return results, errs
	}

	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() {
				if pe := Recovered(recover()); pe != nil {
					errs[i] = pe
				}
			}()
			results[i] = fn(ctx, items[i])
		}(i)
	}
	wg.Wait()
	return results, errs
}

// Chunk splits items into consecutive slices of at most size elements
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
