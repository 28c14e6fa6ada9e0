package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQuotaBoundary(t *testing.T) {
	l := New(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("6th request should be rejected")
	}
	if l.Remaining("1.2.3.4") != 0 {
		t.Errorf("expected 0 remaining, got %d", l.Remaining("1.2.3.4"))
	}
}

func TestClientsIndependent(t *testing.T) {
	l := New(1, time.Minute)

	if !l.Allow("a") {
		t.Error("client a should be admitted")
	}
	if !l.Allow("b") {
		t.Error("client b should be admitted despite a's usage")
	}
	if l.Allow("a") {
		t.Error("client a should be rejected on second request")
	}
}

func TestWindowReset(t *testing.T) {
	l := New(2, 50*time.Millisecond)

	l.Allow("c")
	l.Allow("c")
	if l.Allow("c") {
		t.Fatal("expected rejection within window")
	}

	time.Sleep(60 * time.Millisecond)

	if !l.Allow("c") {
		t.Error("expected admission after window elapsed")
	}
}

func TestRetryAfter(t *testing.T) {
	l := New(1, time.Minute)

	if l.RetryAfter("d") != 0 {
		t.Error("expected no wait before first request")
	}
	l.Allow("d")
	if wait := l.RetryAfter("d"); wait <= 0 || wait > time.Minute {
		t.Errorf("expected wait within (0, 1m], got %v", wait)
	}
}

func TestConcurrentNoOvershoot(t *testing.T) {
	const quota = 50
	l := New(quota, time.Minute)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != quota {
		t.Errorf("expected exactly %d admitted, got %d", quota, admitted.Load())
	}
}
