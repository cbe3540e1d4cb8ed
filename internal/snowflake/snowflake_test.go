package snowflake

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestGenerateUnique(t *testing.T) {
	g, err := NewGenerator(1)
	if err != nil {
		t.Fatalf("NewGenerator() error: %v", err)
	}

	seen := make(map[ID]bool)
	for i := 0; i < 10000; i++ {
		id := g.Generate()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %d", id)
		}
		seen[id] = true
	}
}

func TestGenerateMonotonic(t *testing.T) {
	g, _ := NewGenerator(1)

	prev := g.Generate()
	for i := 0; i < 1000; i++ {
		next := g.Generate()
		if next <= prev {
			t.Fatalf("IDs not monotonic: %d then %d", prev, next)
		}
		prev = next
	}
}

func TestGenerateConcurrent(t *testing.T) {
	g, _ := NewGenerator(1)

	const goroutines = 8
	const perGoroutine = 1000

	var mu sync.Mutex
	seen := make(map[ID]bool)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]ID, 0, perGoroutine)
			for j := 0; j < perGoroutine; j++ {
				ids = append(ids, g.Generate())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				if seen[id] {
					t.Errorf("duplicate ID across goroutines: %d", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()
}

func TestInvalidNodeID(t *testing.T) {
	if _, err := NewGenerator(-1); err == nil {
		t.Error("expected error for negative nodeID")
	}
	if _, err := NewGenerator(maxNodeID + 1); err == nil {
		t.Error("expected error for nodeID out of range")
	}
}

func TestExtractTimestamp(t *testing.T) {
	g, _ := NewGenerator(1)

	before := time.Now().Truncate(time.Millisecond)
	id := g.Generate()
	after := time.Now()

	ts := ExtractTimestamp(id.Int64())
	if ts.Before(before) || ts.After(after) {
		t.Errorf("extracted timestamp %v not in [%v, %v]", ts, before, after)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	id := ID(123456789012345)

	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `"123456789012345"` {
		t.Errorf("expected string encoding, got %s", data)
	}

	var decoded ID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if decoded != id {
		t.Errorf("round trip mismatch: %d != %d", decoded, id)
	}

	// Plain numbers are accepted too.
	if err := json.Unmarshal([]byte(`42`), &decoded); err != nil {
		t.Fatalf("Unmarshal(number) error: %v", err)
	}
	if decoded != 42 {
		t.Errorf("expected 42, got %d", decoded)
	}
}
