package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLock_SerializesSameKey(t *testing.T) {
	locks := New[string]()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("same")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locks.Len())
}

func TestLock_DifferentKeysDoNotBlock(t *testing.T) {
	locks := New[int64]()

	unlockA := locks.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock(2)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key was blocked")
	}
}

func TestUnlock_IsIdempotent(t *testing.T) {
	locks := New[string]()

	unlock := locks.Lock("k")
	unlock()
	assert.NotPanics(t, unlock)
	assert.Equal(t, 0, locks.Len())
}
