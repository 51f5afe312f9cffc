package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/avoronov/bookqa/internal/core/domain"
	"github.com/avoronov/bookqa/internal/core/ports"
	"github.com/avoronov/bookqa/internal/observability/metrics"
)

type Router struct {
	ask      ports.QuestionAnswerer
	verifier *TokenVerifier
	metrics  *metrics.HTTPServerMetrics
	limiter  *rate.Limiter
}

func NewRouter(
	ask ports.QuestionAnswerer,
	verifier *TokenVerifier,
	serverMetrics *metrics.HTTPServerMetrics,
	limitRPS float64,
	limitBurst int,
) *Router {
	var limiter *rate.Limiter
	if limitRPS > 0 {
		if limitBurst < 1 {
			limitBurst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(limitRPS), limitBurst)
	}
	return &Router{
		ask:      ask,
		verifier: verifier,
		metrics:  serverMetrics,
		limiter:  limiter,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.root)
	mux.HandleFunc("/api/ask", rt.askQuestion)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rt.rateLimitMiddleware(handler)
	handler = corsMiddleware(handler)
	handler = rt.metricsMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

// root is the liveness probe.
func (rt *Router) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "RAG backend is running",
	})
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	userID, err := rt.verifier.VerifyRequest(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return
	}

	var req struct {
		Question string `json:"question"`
		UserID   string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	// The token subject is authoritative; a conflicting body user_id is a
	// spoofing attempt, not a bad request.
	if req.UserID != "" && req.UserID != userID {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user_id does not match token subject"})
		return
	}

	start := time.Now()
	answer, err := rt.ask.Ask(r.Context(), req.Question, userID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": publicErrorMessage(err)})
		return
	}
	if rt.metrics != nil {
		rt.metrics.ObserveAsk(answer.Degraded, time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]string{"output": answer.Text})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// publicErrorMessage keeps internal wrapping out of responses and reports
// the failing stage only.
func publicErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid request"
	case errors.Is(err, domain.ErrDownloadFailed):
		return "failed to download source documents"
	case errors.Is(err, domain.ErrExtractionFailed):
		return "failed to extract text from source documents"
	case errors.Is(err, domain.ErrEmbeddingFailed):
		return "failed to generate embeddings"
	case errors.Is(err, domain.ErrRetrievalFailed):
		return "failed to retrieve relevant context"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "storage unavailable"
	default:
		return "internal error"
	}
}
