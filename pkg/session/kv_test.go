package session

import (
	"errors"
	"testing"

	"github.com/revintel/insight-agent/internal/testutil"
	"github.com/revintel/insight-agent/pkg/domain"
)

func TestMemoryKVRoundTrip(t *testing.T) {
	kv := NewMemoryKV()
	ctx := testutil.NewTestContext(t)

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	if err := kv.Put(ctx, "user-1", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, err := kv.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != `{"a":1}` {
		t.Errorf("value = %s", value)
	}

	// Returned slices must be copies.
	value[0] = 'X'
	again, _ := kv.Get(ctx, "user-1")
	if string(again) != `{"a":1}` {
		t.Errorf("stored value mutated: %s", again)
	}
}

func TestFileKVRoundTrip(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := testutil.NewTestContext(t)

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	// Keys with path separators must not escape the directory.
	key := "../weird/user id"
	if err := kv.Put(ctx, key, []byte("state")); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, err := kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != "state" {
		t.Errorf("value = %s", value)
	}
}

func TestFileKVRequiresDirectory(t *testing.T) {
	if _, err := NewFileKV(""); err == nil {
		t.Error("expected error for empty directory")
	}
}
