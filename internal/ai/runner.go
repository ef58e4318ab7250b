package ai

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Kind distinguishes the two async flows.
type Kind int

const (
	KindGeneration Kind = iota
	KindResearch
)

// CancelledMarker replaces a research card's body when the flow is
// cancelled. Generation keeps its partial content instead.
const CancelledMarker = "_Research cancelled._"

// Event is one step of an async flow, delivered on the runner's event
// channel. The consumer applies it through the store's mutation API on
// the event loop; the runner never touches the document.
type Event struct {
	Kind      Kind
	CardID    string
	Ticket    uint64
	Delta     string
	Err       error
	Done      bool
	Cancelled bool
}

// flowHandle identifies one registered flow so a finished goroutine
// can tell its own registration apart from a successor's.
type flowHandle struct {
	ticket uint64
	cancel context.CancelFunc
}

// Runner owns the in-flight async flows: one cancellable context per
// card, monotonic tickets to drop stale responses, and a single event
// channel for the consumer to drain.
type Runner struct {
	client *Client
	seq    *Sequencer
	log    zerolog.Logger

	mu     sync.Mutex
	active map[string]flowHandle

	events chan Event
}

// NewRunner wraps a client in a flow runner.
func NewRunner(client *Client, log zerolog.Logger) *Runner {
	return &Runner{
		client: client,
		seq:    NewSequencer(),
		log:    log,
		active: make(map[string]flowHandle),
		events: make(chan Event, 64),
	}
}

// Events is the stream the consumer drains. Deltas from superseded
// flows never appear on it.
func (r *Runner) Events() <-chan Event { return r.events }

// Generate starts a streamed generation targeting a card. A flow
// already in flight for the card is cancelled first. Returns the
// flow's ticket.
func (r *Runner) Generate(cardID string, messages []Message) uint64 {
	return r.start(KindGeneration, cardID, messages)
}

// Research starts a streamed research flow targeting a card.
func (r *Runner) Research(cardID string, query string) uint64 {
	messages := []Message{
		{Role: "system", Content: "You are a research assistant. Answer with sourced, factual markdown."},
		{Role: "user", Content: query},
	}
	return r.start(KindResearch, cardID, messages)
}

func (r *Runner) start(kind Kind, cardID string, messages []Message) uint64 {
	// issue the ticket before cancelling so the old flow's done event
	// is already stale by the time its context fires
	ticket := r.seq.Begin(cardID)
	r.CancelCard(cardID)

	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.active[cardID] = flowHandle{ticket: ticket, cancel: cancel}
	r.mu.Unlock()

	go func() {
		defer func() {
			// only unregister this flow's own handle; a successor may
			// have re-registered the card already
			r.mu.Lock()
			if h, ok := r.active[cardID]; ok && h.ticket == ticket {
				delete(r.active, cardID)
			}
			r.mu.Unlock()
			cancel()
		}()

		err := r.client.Stream(ctx, messages, func(delta string) error {
			if !r.seq.Accept(cardID, ticket) {
				return context.Canceled
			}
			r.events <- Event{Kind: kind, CardID: cardID, Ticket: ticket, Delta: delta}
			return nil
		})

		done := Event{Kind: kind, CardID: cardID, Ticket: ticket, Done: true}
		switch {
		case errors.Is(err, context.Canceled):
			done.Cancelled = true
		case err != nil:
			done.Err = err
			r.log.Error().Err(err).Str("card", cardID).Msg("stream failed")
		}
		if r.seq.Accept(cardID, ticket) {
			r.events <- done
		}
	}()
	return ticket
}

// CancelCard aborts the in-flight flow for a card, if any.
func (r *Runner) CancelCard(cardID string) bool {
	r.mu.Lock()
	h, ok := r.active[cardID]
	delete(r.active, cardID)
	r.mu.Unlock()
	if ok {
		h.cancel()
	}
	return ok
}

// CancelAll aborts every in-flight flow, used on shutdown.
func (r *Runner) CancelAll() {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.active))
	for _, h := range r.active {
		cancels = append(cancels, h.cancel)
	}
	r.active = make(map[string]flowHandle)
	r.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// Forget drops sequencing state for a deleted card.
func (r *Runner) Forget(cardID string) {
	r.CancelCard(cardID)
	r.seq.Forget(cardID)
}
