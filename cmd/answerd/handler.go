package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	aguievents "github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/agui"
	"github.com/spetersoncode/answer/client"
)

// Generator starts answer calls against a named provider.
// *client.Client satisfies it.
type Generator interface {
	DefaultProvider() answer.ProviderName
	Generate(ctx context.Context, name answer.ProviderName, prompt string, opts ...answer.Option) (*answer.Call, error)
}

// AnswerHandler handles AG-UI answer requests over SSE.
type AnswerHandler struct {
	gen Generator
}

// NewAnswerHandler creates a new handler backed by gen.
func NewAnswerHandler(gen Generator) *AnswerHandler {
	return &AnswerHandler{gen: gen}
}

// newRouter wires the HTTP routes.
func newRouter(h *AnswerHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", healthHandler)
	r.Post("/api/answer", h.ServeHTTP)
	r.Options("/api/answer", func(w http.ResponseWriter, r *http.Request) {})
	return r
}

// ServeHTTP runs one answer call and streams its events via SSE.
func (h *AnswerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var input agui.RunAgentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		slog.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Create request-scoped logger
	log := slog.With(
		"request_id", middleware.GetReqID(r.Context()),
		"run_id", input.RunID,
		"thread_id", input.ThreadID,
	)

	prepared, err := input.Prepare()
	if err != nil {
		log.Warn("invalid input", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	provider := prepared.Props.Provider
	if provider == "" {
		provider = h.gen.DefaultProvider()
	}
	log = log.With("provider", provider)

	ctx := r.Context()
	call, err := h.gen.Generate(ctx, provider, prepared.Prompt, prepared.Options()...)
	if err != nil {
		log.Warn("request rejected", "error", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	// The conversation has no use once the run is over.
	defer call.Cleanup()

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		call.Wait(nil)
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	log.Info("request started", "prompt_length", len(prepared.Prompt))

	mapper := agui.NewMapper(prepared.ThreadID, prepared.RunID)

	var eventCount int
	var writeErr error
	for ev := range mapper.MapStream(ctx, call) {
		if writeErr != nil {
			continue
		}
		if writeErr = writeSSE(w, flusher, ev); writeErr != nil {
			log.Warn("client went away", "error", writeErr)
			continue
		}
		eventCount++
		log.Debug("sent SSE event", "type", ev.Type(), "events_sent", eventCount)
	}

	log.Info("request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"events_sent", eventCount,
	)
}

// statusFor maps a synchronous Generate error to an HTTP status.
func statusFor(err error) int {
	var unknown *client.ErrUnknownProvider
	var missing *client.ErrMissingAPIKey
	switch {
	case errors.As(err, &unknown), errors.Is(err, answer.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.As(err, &missing):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeSSE writes an AG-UI event in SSE format.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev aguievents.Event) error {
	data, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	// Write SSE format: event: TYPE\ndata: {json}\n\n
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type(), string(data)); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	flusher.Flush()
	return nil
}

// corsMiddleware adds CORS headers for cross-origin frontend requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

// healthHandler returns a simple health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
