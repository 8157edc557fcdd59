// Package ratelimit enforces a fixed per-client request budget per minute.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow

	requestsPerMinute int
	cleanupInterval   time.Duration

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientWindow struct {
	lastRequest time.Time
	requests    int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	l := &Limiter{
		clients:           make(map[string]*clientWindow),
		requestsPerMinute: config.RequestsPerMinute,
		cleanupInterval:   config.CleanupInterval,
		stopCleanup:       make(chan struct{}),
	}
	go l.runCleanup()
	return l
}

// Allow reports whether a request from clientIP fits inside its window.
func (l *Limiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	client, ok := l.clients[clientIP]
	if !ok {
		l.clients[clientIP] = &clientWindow{lastRequest: now, requests: 1}
		return true
	}

	// Window resets a minute after the last request.
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= l.requestsPerMinute
}

func (l *Limiter) runCleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.dropStaleClients()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) dropStaleClients() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range l.clients {
		if client.lastRequest.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// ActiveClients returns how many clients are currently tracked.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop halts the cleanup goroutine.
func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopCleanup)
	})
}
