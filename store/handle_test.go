package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabeth/fakesqs/models"
)

func TestHandleAllocator_Unique(t *testing.T) {
	var a HandleAllocator
	seen := make(map[models.ReceiptHandle]struct{}, 10000)
	for range 10000 {
		h := a.Next()
		_, dup := seen[h]
		require.False(t, dup, "handle %q issued twice", h)
		require.NotEqual(t, OrderKey, h)
		seen[h] = struct{}{}
	}
}

func TestHandleAllocator_Concurrent(t *testing.T) {
	var a HandleAllocator
	var mu sync.Mutex
	seen := make(map[models.ReceiptHandle]struct{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				h := a.Next()
				mu.Lock()
				seen[h] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 8*500)
}
