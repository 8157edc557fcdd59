package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBudget(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 3})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("fourth request should exceed the budget")
	}
}

func TestClientsTrackedIndependently(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1})
	defer l.Stop()

	if !l.Allow("10.0.0.1") {
		t.Fatal("first client's first request limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("second client should have its own budget")
	}
	if l.Allow("10.0.0.1") {
		t.Error("first client's second request should be limited")
	}
	if l.ActiveClients() != 2 {
		t.Errorf("ActiveClients() = %d, want 2", l.ActiveClients())
	}
}

func TestZeroConfigFallsBackToDefaults(t *testing.T) {
	l := NewLimiter(Config{})
	defer l.Stop()

	if l.requestsPerMinute != 60 {
		t.Errorf("requestsPerMinute = %d, want 60", l.requestsPerMinute)
	}
	if l.cleanupInterval != 5*time.Minute {
		t.Errorf("cleanupInterval = %v, want 5m", l.cleanupInterval)
	}
}
