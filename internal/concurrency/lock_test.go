package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionLocks_SerializesPerSession(t *testing.T) {
	locks := NewSessionLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("s1")
			counter++
			locks.Unlock("s1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestSessionLocks_IndependentSessions(t *testing.T) {
	locks := NewSessionLocks()

	locks.Lock("s1")
	done := make(chan struct{})
	go func() {
		locks.Lock("s2")
		locks.Unlock("s2")
		close(done)
	}()

	<-done // would deadlock if sessions shared a mutex
	locks.Unlock("s1")
}
