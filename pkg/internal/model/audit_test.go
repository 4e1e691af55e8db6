package model

import (
	"sync"
	"testing"
)

// 多个事务可以同时写审计条目，ID 生成必须可并发调用且不产生重复.
func TestAuditIDConcurrentGeneration(t *testing.T) {
	const (
		workers = 8
		perG    = 200
	)

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perG)
		wg   sync.WaitGroup
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ids := make([]string, 0, perG)
			for range perG {
				ids = append(ids, newAuditID())
			}

			mu.Lock()
			defer mu.Unlock()

			for _, id := range ids {
				seen[id] = struct{}{}
			}
		}()
	}

	wg.Wait()

	if len(seen) != workers*perG {
		t.Fatalf("expected %d unique ids, got %d", workers*perG, len(seen))
	}
}

func TestAuditBeforeCreateKeepsExplicitID(t *testing.T) {
	e := AuditLogEntry{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV"}
	if err := e.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate: %v", err)
	}

	if e.ID != "01ARZ3NDEKTSV4RRFFQ69G5FAV" {
		t.Fatalf("explicit id overwritten: %s", e.ID)
	}

	var fresh AuditLogEntry
	if err := fresh.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate: %v", err)
	}

	if len(fresh.ID) != 26 {
		t.Fatalf("expected 26-char ulid, got %q", fresh.ID)
	}
}
