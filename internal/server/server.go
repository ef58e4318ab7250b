// Package server exposes the model relay and document sync API over
// HTTP: streamed chat relayed as server-sent events, one-shot
// completion, research flows with cancellation, and a websocket hub
// broadcasting document updates to connected canvases.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"mural/internal/ai"
	"mural/internal/doc"
)

// Server wires the HTTP API around one AI client and one shared
// in-memory document.
type Server struct {
	log    zerolog.Logger
	client *ai.Client
	runner *ai.Runner
	hub    *Hub

	mu       sync.RWMutex
	document doc.Document

	pumpOnce sync.Once
}

// New builds the server with an empty document.
func New(client *ai.Client, log zerolog.Logger) *Server {
	return &Server{
		log:      log,
		client:   client,
		runner:   ai.NewRunner(client, log),
		hub:      NewHub(log),
		document: doc.New(),
	}
}

// Hub exposes the websocket broadcaster, mainly for tests.
func (s *Server) Hub() *Hub { return s.hub }

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/complete", s.handleComplete)
		r.Get("/models", s.handleModels)
		r.Get("/verify", s.handleVerify)
		r.Post("/research", s.handleResearch)
		r.Post("/research/cancel", s.handleResearchCancel)
		r.Get("/document", s.handleGetDocument)
		r.Put("/document", s.handlePutDocument)
	})
	r.Get("/ws", s.hub.ServeWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type chatBody struct {
	Messages []ai.Message `json:"messages"`
}

// handleChat relays a streamed completion to the caller as
// server-sent events, re-framing each delta and terminating with the
// done sentinel. Client disconnect cancels the upstream request.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(body.Messages) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("messages must not be empty"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	err := s.client.Stream(r.Context(), body.Messages, func(delta string) error {
		frame, err := json.Marshal(map[string]string{"delta": delta})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil && r.Context().Err() == nil {
		// headers are gone; surface the failure inside the stream
		frame, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "data: %s\n\n", frame)
	}
	fmt.Fprintf(w, "data: %s\n\n", ai.DoneSentinel)
	flusher.Flush()
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	text, err := s.client.Complete(r.Context(), body.Messages)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": text})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	ids, err := s.client.Models(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"models": ids})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Verify(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type researchBody struct {
	CardID string `json:"cardId"`
	Query  string `json:"query"`
}

// handleResearch starts a background research flow; deltas reach
// clients over the websocket hub rather than this response.
func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var body researchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if body.CardID == "" || body.Query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("cardId and query are required"))
		return
	}
	ticket := s.runner.Research(body.CardID, body.Query)
	go s.pumpEvents()
	writeJSON(w, http.StatusAccepted, map[string]any{"cardId": body.CardID, "ticket": ticket})
}

func (s *Server) handleResearchCancel(w http.ResponseWriter, r *http.Request) {
	var body researchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	cancelled := s.runner.CancelCard(body.CardID)
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// pumpEvents drains runner events into document mutations and hub
// broadcasts for the lifetime of the process.
func (s *Server) pumpEvents() {
	s.pumpOnce.Do(func() {
		for ev := range s.runner.Events() {
			switch {
			case ev.Done && ev.Cancelled && ev.Kind == ai.KindResearch:
				s.patchCard(ev.CardID, doc.CardPatch{BodyMarkdown: ptr(ai.CancelledMarker)})
				s.hub.Broadcast(Event{Type: EventCardDone, CardID: ev.CardID})
			case ev.Done && ev.Err != nil:
				s.patchCard(ev.CardID, doc.CardPatch{AppendBody: ptr("\n\n_Generation failed: " + ev.Err.Error() + "_")})
				s.hub.Broadcast(Event{Type: EventCardDone, CardID: ev.CardID})
			case ev.Done:
				s.hub.Broadcast(Event{Type: EventCardDone, CardID: ev.CardID})
			default:
				s.patchCard(ev.CardID, doc.CardPatch{AppendBody: ptr(ev.Delta)})
				s.hub.Broadcast(Event{Type: EventCardStreaming, CardID: ev.CardID, Delta: ev.Delta})
			}
		}
	})
}

func ptr[T any](v T) *T { return &v }

func (s *Server) patchCard(id string, patch doc.CardPatch) {
	s.mu.Lock()
	s.document = doc.UpdateCard(s.document, id, patch)
	s.mu.Unlock()
}

func (s *Server) handleGetDocument(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	d := s.document
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, d)
}

// handlePutDocument replaces the shared document wholesale and
// notifies subscribers.
func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	var d doc.Document
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode document: %w", err))
		return
	}
	if d.Camera.Zoom <= 0 {
		d.Camera.Zoom = 1
	}
	s.mu.Lock()
	s.document = d
	version := d.Version
	s.mu.Unlock()
	s.hub.Broadcast(Event{Type: EventDocumentUpdated, Version: version})
	writeJSON(w, http.StatusOK, map[string]int{"version": version})
}
