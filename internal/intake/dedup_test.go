package intake

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestDeduplicator_FirstSighting(t *testing.T) {
	d := NewDeduplicator()

	if !d.CheckAndMark("wamid.1") {
		t.Error("Expected first sighting to return true")
	}

	if d.CheckAndMark("wamid.1") {
		t.Error("Expected second sighting to return false")
	}

	if !d.CheckAndMark("wamid.2") {
		t.Error("Expected a different id to return true")
	}

	if d.Len() != 2 {
		t.Errorf("Expected 2 tracked ids, got %d", d.Len())
	}
}

func TestDeduplicator_ConcurrentDeliveries(t *testing.T) {
	d := NewDeduplicator()

	var firsts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.CheckAndMark("wamid.same") {
				firsts.Add(1)
			}
		}()
	}
	wg.Wait()

	if firsts.Load() != 1 {
		t.Errorf("Expected exactly one delivery to pass the gate, got %d", firsts.Load())
	}
}
