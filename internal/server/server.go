// Package server implements the chat endpoint the client talks to: memory
// retrieval, optional web findings and a completion call per message.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAllowedOrigin is where the hosted client is served from
const DefaultAllowedOrigin = "https://ropdawg.github.io"

// Options configures a Server
type Options struct {
	// AllowedOrigins lists origins that may call the API from a browser.
	// "*" allows any origin.
	AllowedOrigins []string
	// Assets, when set, serves every unmatched GET.
	Assets http.Handler
}

// Server answers chat, memory and health requests
type Server struct {
	completer Completer
	memory    *MemoryBank
	search    WebSearcher
	log       *zap.Logger
	opts      Options
}

// New creates a server. search may be nil to disable web findings.
func New(completer Completer, memory *MemoryBank, search WebSearcher, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if memory == nil {
		memory = NewMemoryBank(DefaultMemoryLimit, nil)
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{DefaultAllowedOrigin}
	}
	return &Server{
		completer: completer,
		memory:    memory,
		search:    search,
		log:       log,
		opts:      opts,
	}
}

// Handler returns the routed handler wrapped in CORS and request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /memory", s.handleGetMemory)
	mux.HandleFunc("POST /memory", s.handlePostMemory)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.opts.Assets != nil {
		mux.Handle("GET /", s.opts.Assets)
	}

	return s.logRequests(CORS(s.opts.AllowedOrigins)(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

type chatRequest struct {
	Text     *string `json:"text"`
	UseWeb   bool    `json:"use_web"`
	WebQuery string  `json:"web_query"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusUnprocessableEntity, "text is required")
		return
	}
	text := *req.Text
	log := loggerFrom(r.Context(), s.log)

	memories := s.memory.Relevant(text, 5)

	var findings []Finding
	if s.search != nil && (req.UseWeb || ShouldUseWeb(text)) && s.search.Available(r.Context()) {
		query := req.WebQuery
		if query == "" {
			query = text
		}
		var err error
		findings, err = s.search.Findings(r.Context(), query)
		if err != nil {
			log.Warn("web search failed", zap.Error(err))
			findings = nil
		}
		log.Debug("web findings", zap.Int("count", len(findings)))
	}

	user := BuildUserPrompt(memories, findings, text)
	reply, err := s.completer.Complete(r.Context(), SystemPrompt, user, maxTokensFor(len(findings) > 0))
	if err != nil {
		log.Error("completion failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "completion failed")
		return
	}

	s.memory.Append("user", text)
	s.memory.Append("ai", reply)

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "limit must be an integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.memory.Relevant(r.URL.Query().Get("query"), limit))
}

type memoryRequest struct {
	Role *string `json:"role"`
	Text *string `json:"text"`
}

func (s *Server) handlePostMemory(w http.ResponseWriter, r *http.Request) {
	var req memoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Role == nil || req.Text == nil {
		writeError(w, http.StatusUnprocessableEntity, "role and text are required")
		return
	}
	s.memory.Append(*req.Role, *req.Text)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// maxBodyBytes caps request bodies on /chat and /memory
const maxBodyBytes = 1 << 20

// decodeBody reads a capped JSON body into v, writing the error response
// itself when it fails
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return true
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	default:
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// CORS allows browser calls from the listed origins, answering preflight
// requests itself
func CORS(origins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			ok := allowAll || allowed[origin]
			w.Header().Add("Vary", "Origin")

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if preflight {
				if !ok {
					http.Error(w, "Disallowed CORS origin", http.StatusBadRequest)
					return
				}
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT")
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				}
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusOK)
				return
			}

			if ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			next.ServeHTTP(w, r)
		})
	}
}

type loggerKey struct{}

func loggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return fallback
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests tags each request with an id and logs its outcome
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		reqLog := s.log.With(zap.String("request_id", id.String()))
		w.Header().Set("X-Request-ID", id.String())

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), loggerKey{}, reqLog)))

		reqLog.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
