package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_Serializes_Same_Key(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("a")
			defer unlock()
			// read-modify-write without any other synchronisation
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	req.Equal(100, counter)
	// Then the table is empty once everybody released
	req.Zero(locks.Len())
}

func TestKeyedMutex_Different_Keys_Do_Not_Block(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	// Given key "a" is held
	unlockA := locks.Lock("a")
	defer unlockA()

	// When another goroutine locks "b"
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()

	// Then it is not blocked by "a"
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("lock on a distinct key should not wait")
	}
}

func TestKeyedMutex_Unlock_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	unlock := locks.Lock("a")
	unlock()
	unlock()

	req.Zero(locks.Len())
	// The key can be taken again
	locks.Lock("a")()
}
