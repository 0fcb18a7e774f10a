package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesCapacity(t *testing.T) {
	l := New()
	for i := 0; i < 5; i++ {
		if !l.Allow("k", 5, 0) {
			t.Fatalf("call %d denied within capacity", i)
		}
	}
	if l.Allow("k", 5, 0) {
		t.Fatal("call beyond capacity allowed")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0) {
		t.Fatal("first call for a denied")
	}
	if l.Allow("a", 1, 0) {
		t.Fatal("second call for a allowed")
	}
	if !l.Allow("b", 1, 0) {
		t.Fatal("first call for b denied")
	}
}

func TestRefillRestoresTokens(t *testing.T) {
	l := New()
	if !l.Allow("k", 1, 100) {
		t.Fatal("first call denied")
	}
	if l.Allow("k", 1, 100) {
		t.Fatal("bucket not empty after first call")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("k", 1, 100) {
		t.Fatal("call denied after refill window")
	}
}

func TestForgetResetsBucket(t *testing.T) {
	l := New()
	l.Allow("k", 1, 0)
	if l.Allow("k", 1, 0) {
		t.Fatal("bucket not drained")
	}
	l.Forget("k")
	if !l.Allow("k", 1, 0) {
		t.Fatal("call denied after forget")
	}
}
