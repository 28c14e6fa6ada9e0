// Package gateway serves the /chat endpoint and orchestrates the request
// pipeline: rate-limit admission, cache lookup, upstream generation,
// cache write-back, and audit logging.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/chatgate/chatgate/pkg/audit"
	"github.com/chatgate/chatgate/pkg/cache"
	"github.com/chatgate/chatgate/pkg/config"
	"github.com/chatgate/chatgate/pkg/models"
	"github.com/chatgate/chatgate/pkg/ratelimit"
	"github.com/chatgate/chatgate/pkg/upstream"
)

// Server is the chatgate HTTP gateway.
type Server struct {
	cfg      *config.Config
	cache    cache.Store
	limiter  *ratelimit.Limiter
	upstream upstream.Generator
	auditor  audit.Recorder
	group    singleflight.Group
	mux      *http.ServeMux

	droppedLogs atomic.Int64
}

// New creates a gateway Server wired with all dependencies. The cache and
// auditor may be nil, in which case every lookup misses and nothing is
// recorded.
func New(cfg *config.Config, store cache.Store, limiter *ratelimit.Limiter, gen upstream.Generator, rec audit.Recorder) *Server {
	s := &Server{
		cfg:      cfg,
		cache:    store,
		limiter:  limiter,
		upstream: gen,
		auditor:  rec,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/chat", s.handleChat)
	s.mux.HandleFunc("/", s.handleRoot)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the gateway with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("chatgate listening on %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// DroppedLogs returns how many audit writes have failed since startup.
func (s *Server) DroppedLogs() int64 {
	return s.droppedLogs.Load()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "no such endpoint")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "chatgate is running. Use /chat?query=your+question",
	})
}

// handleChat runs the request pipeline. Steps execute in a fixed order:
// admission, cache lookup, upstream call and cache write-back on a miss,
// audit write. Rejected and invalid requests are not audited; the log is
// a record of work performed.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	clientID := clientAddr(r)

	query := models.NormalizeQuery(r.URL.Query().Get("query"))
	if query == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "query must not be empty")
		return
	}

	if !s.limiter.Allow(clientID) {
		if wait := s.limiter.RetryAfter(clientID); wait > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
		}
		writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
		return
	}

	start := time.Now()
	ctx := r.Context()

	if s.cache != nil {
		if answer, ok := s.cache.Get(ctx, query); ok {
			s.record(ctx, clientID, query, answer, models.SourceCache, models.OutcomeOK, start)
			writeJSON(w, http.StatusOK, models.Result{Answer: answer, Source: models.SourceCache})
			return
		}
	}

	answer, err := s.resolve(ctx, query)
	if err != nil {
		log.Printf("upstream error for %s: %v", clientID, err)
		s.record(ctx, clientID, query, "", models.SourceAPI, models.OutcomeError, start)
		writeJSONError(w, http.StatusBadGateway, "upstream_error", "language model request failed")
		return
	}

	s.record(ctx, clientID, query, answer, models.SourceAPI, models.OutcomeOK, start)
	writeJSON(w, http.StatusOK, models.Result{Answer: answer, Source: models.SourceAPI})
}

// resolve calls upstream for a normalized query and writes the answer
// back to the cache. Concurrent identical misses share one upstream call
// via single-flight; the winner populates the cache once. The prompt sent
// upstream is the normalized query, consistent with the cache key.
func (s *Server) resolve(ctx context.Context, query string) (string, error) {
	// The in-flight call is shared by every waiter for this query, so it
	// must not die with the caller whose closure happens to run. The
	// upstream client's own timeout bounds the detached call.
	callCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(query, func() (any, error) {
		answer, err := s.upstream.Generate(callCtx, query)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Put(callCtx, query, answer); err != nil {
				// Cache is an optimization; the answer still goes out.
				log.Printf("cache put error: %v", err)
			}
		}
		return answer, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// record writes one audit entry. Failures never reach the caller: they
// are counted, reported on the process log, and the response proceeds.
func (s *Server) record(ctx context.Context, clientID, query, answer, source, outcome string, start time.Time) {
	if s.auditor == nil {
		return
	}
	rec := models.LogRecord{
		ClientAddr: clientID,
		Query:      query,
		Answer:     answer,
		Source:     source,
		Outcome:    outcome,
		LatencyMs:  time.Since(start).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	// The record documents work already performed; a client hanging up
	// must not abort the write.
	if err := s.auditor.Log(context.WithoutCancel(ctx), rec); err != nil {
		s.droppedLogs.Add(1)
		log.Printf("audit log error: %v", err)
	}
}

// clientAddr derives the rate-limit and audit identity from the
// connection's source address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%q,"message":%q}}`+"\n", errCode, message)
}
