package counter_test

import (
	"sync"
	"testing"

	"github.com/ffsnfs/ffsnfs/util/counter"
)

func TestAtomic(t *testing.T) {
	var c counter.Atomic
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	if got := c.Value(); got != 100 {
		t.Errorf("Value() = %d, want 100", got)
	}
}

func TestNoop(t *testing.T) {
	// Noop must satisfy Counter and never panic.
	counter.Noop.Inc()
	counter.Noop.Inc()
}
