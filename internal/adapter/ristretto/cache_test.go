package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "decision:code:abc", []byte(`{"continue":true}`), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	c.Wait()

	val, ok, err := c.Get(ctx, "decision:code:abc")
	if err != nil || !ok {
		t.Fatalf("Get = %v, ok=%v", err, ok)
	}
	if string(val) != `{"continue":true}` {
		t.Fatalf("got %s", val)
	}

	if err := c.Delete(ctx, "decision:code:abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	c.Wait()
	if _, ok, _ := c.Get(ctx, "decision:code:abc"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestGetMiss(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, ok, err := c.Get(context.Background(), "decision:code:never"); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
}
