// Package http exposes the ledger over a JSON API. Identity is taken from
// the X-User-ID header; authentication is expected to happen upstream.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"conti/internal/services"
)

type Server struct {
	http.Server
	ledger      *services.LedgerService
	portfolio   *services.PortfolioService
	recurring   *services.RecurringService
	reports     *services.ReportsService
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, ledger *services.LedgerService, portfolio *services.PortfolioService, recurring *services.RecurringService, reports *services.ReportsService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:      ledger,
		portfolio:   portfolio,
		recurring:   recurring,
		reports:     reports,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /transactions", s.wrap(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions", s.wrap(s.handleListTransactions))
	mux.HandleFunc("GET /transactions/{id}", s.wrap(s.handleGetTransaction))
	mux.HandleFunc("PATCH /transactions/{id}", s.wrap(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.wrap(s.handleDeleteTransaction))

	mux.HandleFunc("POST /accounts", s.wrap(s.handleCreateAccount))
	mux.HandleFunc("GET /accounts", s.wrap(s.handleListAccounts))
	mux.HandleFunc("GET /accounts/{id}", s.wrap(s.handleGetAccount))
	mux.HandleFunc("PATCH /accounts/{id}", s.wrap(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /accounts/{id}", s.wrap(s.handleDeleteAccount))
	mux.HandleFunc("PUT /accounts/{id}/balance", s.wrap(s.handleOverrideAccountBalance))

	mux.HandleFunc("POST /cards", s.wrap(s.handleCreateCard))
	mux.HandleFunc("GET /cards", s.wrap(s.handleListCards))
	mux.HandleFunc("GET /cards/{id}", s.wrap(s.handleGetCard))
	mux.HandleFunc("PATCH /cards/{id}", s.wrap(s.handleUpdateCard))
	mux.HandleFunc("DELETE /cards/{id}", s.wrap(s.handleDeleteCard))
	mux.HandleFunc("PUT /cards/{id}/used", s.wrap(s.handleOverrideCardUsed))

	mux.HandleFunc("POST /categories", s.wrap(s.handleCreateCategory))
	mux.HandleFunc("GET /categories", s.wrap(s.handleListCategories))
	mux.HandleFunc("DELETE /categories/{id}", s.wrap(s.handleDeleteCategory))

	mux.HandleFunc("POST /recurring", s.wrap(s.handleCreateRecurring))
	mux.HandleFunc("GET /recurring", s.wrap(s.handleListRecurring))
	mux.HandleFunc("GET /recurring/{id}", s.wrap(s.handleGetRecurring))
	mux.HandleFunc("PATCH /recurring/{id}", s.wrap(s.handleUpdateRecurring))
	mux.HandleFunc("DELETE /recurring/{id}", s.wrap(s.handleDeleteRecurring))

	mux.HandleFunc("POST /budgets", s.wrap(s.handleCreateBudget))
	mux.HandleFunc("GET /budgets", s.wrap(s.handleListBudgets))
	mux.HandleFunc("PATCH /budgets/{id}", s.wrap(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /budgets/{id}", s.wrap(s.handleDeleteBudget))

	mux.HandleFunc("GET /reports/budgets", s.wrap(s.handleBudgetReport))
	mux.HandleFunc("GET /reports/cashflow", s.wrap(s.handleCashFlowReport))
	mux.HandleFunc("GET /reports/categories", s.wrap(s.handleCategoryReport))
	mux.HandleFunc("GET /reports/fixed-variable", s.wrap(s.handleFixedVariableReport))

	return s
}

// wrap adds security headers, rate limiting and request logging around a
// handler.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit mutating requests only; reads are cheap.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
