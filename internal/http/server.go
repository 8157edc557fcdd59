// Package http serves the household ledger UI: server-rendered pages with
// HTMX partials for the balance overview, plus form endpoints for entries
// and a CSV export.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cassa/internal/cache"
	"cassa/internal/core"
	"cassa/internal/ledger"
	"cassa/internal/metrics"
	"cassa/internal/middleware/ratelimit"
	"cassa/internal/middleware/security"
	"cassa/internal/middleware/trace"
	appweb "cassa/web"
)

// Ledger is the application surface the handlers talk to.
type Ledger interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
	AddGrocery(ctx context.Context, g core.GroceryItem) (string, error)
	DeleteGrocery(ctx context.Context, id string) error
	AddDeposit(ctx context.Context, d core.Deposit) (string, error)
	DeleteDeposit(ctx context.Context, id string) error
	AddMember(ctx context.Context, m core.Member) (string, error)
	RetireMember(ctx context.Context, id string, when core.Date) error
}

// summaryResult pairs a computed summary with the malformed records found
// while computing it, so cached reads still surface them.
type summaryResult struct {
	Summary ledger.Summary
	Errors  []ledger.RecordError
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    Ledger

	summaryCache  *cache.LRUCache[summaryResult]
	snapshotCache *cache.LRUCache[core.Snapshot]
	cacheManager  *cache.Manager

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, lg Ledger, requestsPerMinute int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		ledger:        lg,
		summaryCache:  cache.NewLRUCache[summaryResult](100, 5*time.Minute),
		snapshotCache: cache.NewLRUCache[core.Snapshot](4, time.Minute),
		cacheManager:  cache.NewManager(),
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: requestsPerMinute}),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.snapshotCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/groceries", s.limitWrites(s.handleCreateGrocery))
	mux.HandleFunc("/groceries/delete", s.limitWrites(s.handleDeleteGrocery))
	mux.HandleFunc("/deposits", s.limitWrites(s.handleCreateDeposit))
	mux.HandleFunc("/deposits/delete", s.limitWrites(s.handleDeleteDeposit))
	mux.HandleFunc("/members", s.limitWrites(s.handleCreateMember))
	mux.HandleFunc("/members/retire", s.limitWrites(s.handleRetireMember))

	mux.HandleFunc("/ui/balance-overview", s.handleBalanceOverview)
	mux.HandleFunc("/ui/member-account", s.handleMemberAccount)
	mux.HandleFunc("/export/groceries.csv", s.handleExportGroceries)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(extractClientIP)

	s.Server = http.Server{
		Addr:    addr,
		Handler: headers.Middleware(tracer.Middleware(mux)),
	}

	return s
}

// limitWrites applies the per-client rate limit to mutating requests.
func (s *Server) limitWrites(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mutating := r.Method == http.MethodPost || r.Method == http.MethodDelete
		if mutating && !s.limiter.Allow(extractClientIP(r)) {
			metrics.RateLimitHits.Inc()
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", extractClientIP(r), "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// extractClientIP resolves the client address, honoring proxy headers.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// Shutdown stops the server and its background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.Snapshot(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	snap, err := s.getSnapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot load error", "error", err)
	}

	type memberOption struct {
		ID   string
		Name string
	}
	data := struct {
		Today   string
		Members []memberOption
	}{
		Today: time.Now().UTC().Format("2006-01-02"),
	}
	for _, m := range snap.Members {
		data.Members = append(data.Members, memberOption{ID: m.ID, Name: m.Name})
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// getSnapshot returns the current ledger snapshot, served from a short-TTL
// cache to keep HTMX polling cheap.
func (s *Server) getSnapshot(ctx context.Context) (core.Snapshot, error) {
	if snap, ok := s.snapshotCache.Get("current"); ok {
		return snap, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	snap, err := s.ledger.Snapshot(cctx)
	if err != nil {
		return core.Snapshot{}, err
	}

	s.snapshotCache.Set("current", snap)
	return snap, nil
}

// invalidate drops cached reads after a write.
func (s *Server) invalidate() {
	s.snapshotCache.Clear()
	s.summaryCache.Clear()
}
