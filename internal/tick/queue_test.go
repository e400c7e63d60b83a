package tick

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/udisondev/gridgo/internal/model"
)

func TestIntentQueue_DrainPreservesOrder(t *testing.T) {
	q := NewIntentQueue()
	zoneID := uuid.New()

	for i := 0; i < 5; i++ {
		q.Enqueue(model.Intent{
			ZoneID: zoneID,
			Data:   json.RawMessage(fmt.Sprintf(`{"seq": %d}`, i)),
		})
	}

	intents := q.Drain(zoneID)
	if len(intents) != 5 {
		t.Fatalf("Drain() returned %d intents, want 5", len(intents))
	}
	for i, intent := range intents {
		want := fmt.Sprintf(`{"seq": %d}`, i)
		if string(intent.Data) != want {
			t.Errorf("intent %d data = %s, want %s", i, intent.Data, want)
		}
	}
}

func TestIntentQueue_DrainEmpties(t *testing.T) {
	q := NewIntentQueue()
	zoneID := uuid.New()

	q.Enqueue(model.Intent{ZoneID: zoneID, Data: json.RawMessage(`{}`)})
	if got := len(q.Drain(zoneID)); got != 1 {
		t.Fatalf("first Drain() = %d intents, want 1", got)
	}
	if got := q.Drain(zoneID); got != nil {
		t.Errorf("second Drain() = %v, want nil", got)
	}
}

func TestIntentQueue_DrainUnknownZone(t *testing.T) {
	q := NewIntentQueue()
	if got := q.Drain(uuid.New()); got != nil {
		t.Errorf("Drain(unknown zone) = %v, want nil", got)
	}
}

func TestIntentQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewIntentQueue()
	zoneID := uuid.New()

	const writers = 10
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				q.Enqueue(model.Intent{ZoneID: zoneID, Data: json.RawMessage(`{}`)})
			}
		}()
	}
	wg.Wait()

	if got := len(q.Drain(zoneID)); got != writers*perWriter {
		t.Errorf("Drain() after concurrent enqueue = %d intents, want %d", got, writers*perWriter)
	}
}

func TestIntentQueue_EnqueueDuringDrainIsNotLost(t *testing.T) {
	q := NewIntentQueue()
	zoneID := uuid.New()

	// Interleave drains with enqueues: every intent must show up in
	// exactly one drain.
	const total = 1000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.Enqueue(model.Intent{ZoneID: zoneID, Data: json.RawMessage(`{}`)})
		}
	}()

	drained := 0
	for i := 0; i < total; i++ {
		drained += len(q.Drain(zoneID))
	}
	wg.Wait()
	drained += len(q.Drain(zoneID))

	if drained != total {
		t.Errorf("drained %d intents in total, want %d", drained, total)
	}
}

func TestIntentQueue_ZonesWithPending(t *testing.T) {
	q := NewIntentQueue()
	zoneA := uuid.New()
	zoneB := uuid.New()

	if got := q.ZonesWithPending(); len(got) != 0 {
		t.Fatalf("ZonesWithPending() on empty queue = %v, want none", got)
	}

	q.Enqueue(model.Intent{ZoneID: zoneA, Data: json.RawMessage(`{}`)})
	q.Enqueue(model.Intent{ZoneID: zoneB, Data: json.RawMessage(`{}`)})

	pending := q.ZonesWithPending()
	if len(pending) != 2 {
		t.Fatalf("ZonesWithPending() = %v, want 2 zones", pending)
	}

	q.Drain(zoneA)
	pending = q.ZonesWithPending()
	if len(pending) != 1 || pending[0] != zoneB {
		t.Errorf("ZonesWithPending() after draining zoneA = %v, want [%s]", pending, zoneB)
	}
}
