package cache

import (
	"context"
	"testing"
	"time"

	"github.com/campuskit/prefect/id"
	"github.com/campuskit/prefect/module"
)

func testModule(tenantID, name string) *module.Module {
	return &module.Module{
		ID:       id.NewModuleID(),
		TenantID: tenantID,
		Name:     name,
	}
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if _, ok := c.Get(ctx, "school-1", "assignment"); ok {
		t.Fatal("expected miss on empty cache")
	}

	mod := testModule("school-1", "assignment")
	c.Set(ctx, mod)

	got, ok := c.Get(ctx, "school-1", "assignment")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.ID != mod.ID {
		t.Fatalf("expected module %s, got %s", mod.ID, got.ID)
	}

	// Same name in another tenant is a different entry.
	if _, ok := c.Get(ctx, "school-2", "assignment"); ok {
		t.Fatal("expected miss for other tenant")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Nanosecond))

	c.Set(ctx, testModule("school-1", "assignment"))
	time.Sleep(time.Millisecond)

	if _, ok := c.Get(ctx, "school-1", "assignment"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestMemoryInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, testModule("school-1", "assignment"))
	c.Set(ctx, testModule("school-1", "gradebook"))
	c.Set(ctx, testModule("school-2", "assignment"))

	c.Invalidate(ctx, "school-1", "assignment")
	if _, ok := c.Get(ctx, "school-1", "assignment"); ok {
		t.Fatal("expected invalidated entry to miss")
	}
	if _, ok := c.Get(ctx, "school-1", "gradebook"); !ok {
		t.Fatal("expected sibling entry to survive")
	}

	c.InvalidateTenant(ctx, "school-1")
	if _, ok := c.Get(ctx, "school-1", "gradebook"); ok {
		t.Fatal("expected tenant entries to be gone")
	}
	if _, ok := c.Get(ctx, "school-2", "assignment"); !ok {
		t.Fatal("expected other tenant to survive")
	}
}

func TestMemoryEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	c.Set(ctx, testModule("school-1", "a"))
	c.Set(ctx, testModule("school-1", "b"))
	c.Set(ctx, testModule("school-1", "c"))

	if len(c.entries) > 2 {
		t.Fatalf("expected at most 2 entries, got %d", len(c.entries))
	}
}
