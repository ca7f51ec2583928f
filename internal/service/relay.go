package service

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lazarohernan/abogados/internal/model"

	"github.com/google/uuid"
)

// MessageStore persists turns. Append failures are fatal to the turn: the
// relay never forwards a message it could not record.
type MessageStore interface {
	Append(ctx context.Context, conversationID string, role model.Role, content string) (*model.Message, error)
}

// Responder produces the assistant reply for one user message.
type Responder interface {
	Ask(ctx context.Context, conversationID, userID, content string) (string, error)
}

// EventSink receives the server-originated events of one delivery channel.
// Implementations must preserve emission order per channel.
type EventSink interface {
	Emit(ev *model.WSEvent)
}

// State of the relay for one channel.
type State int32

const (
	StateIdle State = iota
	StateGuarding
	StateForwarding
	StateStreaming
)

// Relay orchestrates one in-flight request per delivery channel:
//
//	Idle -> Guarding -> Forwarding -> Streaming -> Idle
//
// Every error path returns to Idle so the channel stays usable. Each
// connection owns its own Relay; the only state shared across connections
// lives in the Guard.
type Relay struct {
	guard       *Guard
	store       MessageStore
	responder   Responder
	streamDelay time.Duration

	state atomic.Int32
}

func NewRelay(guard *Guard, store MessageStore, responder Responder, streamDelay time.Duration) *Relay {
	return &Relay{
		guard:       guard,
		store:       store,
		responder:   responder,
		streamDelay: streamDelay,
	}
}

func (r *Relay) State() State {
	return State(r.state.Load())
}

// Handle runs one send through the state machine. ctx is scoped to the
// connection: when the channel disconnects mid-flight, the upstream call is
// cancelled and any late result is discarded without touching the sink.
//
// The returned error mirrors what was emitted; callers only log it.
func (r *Relay) Handle(ctx context.Context, sink EventSink, userID, conversationID, content string) error {
	// Exactly one request in flight per channel. A second send is rejected,
	// never queued, so streams cannot interleave.
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateGuarding)) {
		return r.reject(sink, model.ErrConcurrentRequest)
	}
	defer r.state.Store(int32(StateIdle))

	content = strings.TrimSpace(content)
	if content == "" {
		return r.reject(sink, model.ErrValidation)
	}

	if rerr := r.guard.Check(ctx, userID); rerr != nil {
		sink.Emit(rerr.Event())
		return rerr
	}

	// User turn is committed before forwarding and never rolled back: it is
	// the audit record of what was asked, regardless of what happens upstream.
	if _, err := r.store.Append(ctx, conversationID, model.RoleUser, content); err != nil {
		log.Printf("[Relay] user turn append failed (conversation %s): %v", conversationID, err)
		return r.reject(sink, model.ErrStorage)
	}

	r.state.Store(int32(StateForwarding))
	sink.Emit(model.NewEvent(model.EventTypingStarted, nil))

	requestID := uuid.NewString()
	reply, err := r.responder.Ask(ctx, conversationID, userID, content)
	if ctx.Err() != nil {
		// Channel closed mid-flight. The result, if any, belongs to no one.
		log.Printf("[Relay] request %s cancelled (conversation %s)", requestID, conversationID)
		return ctx.Err()
	}
	if err != nil {
		log.Printf("[Relay] request %s upstream failure (conversation %s): %v", requestID, conversationID, err)
		rerr := model.NewRelayError(model.ErrUpstream)
		sink.Emit(rerr.Event())
		sink.Emit(model.NewEvent(model.EventTypingStopped, nil))
		return rerr
	}

	r.state.Store(int32(StateStreaming))
	if err := r.stream(ctx, sink, reply); err != nil {
		log.Printf("[Relay] request %s cancelled mid-stream (conversation %s)", requestID, conversationID)
		return err
	}

	// Assistant turn is committed only once fully assembled and delivered.
	if _, err := r.store.Append(ctx, conversationID, model.RoleAssistant, reply); err != nil {
		log.Printf("[Relay] assistant turn append failed (conversation %s): %v", conversationID, err)
		rerr := model.NewRelayError(model.ErrStorage)
		sink.Emit(rerr.Event())
		sink.Emit(model.NewEvent(model.EventTypingStopped, nil))
		return rerr
	}

	sink.Emit(model.NewEvent(model.EventTypingStopped, nil))
	return nil
}

// stream reveals the reply word by word as cumulative prefixes, pacing each
// chunk by streamDelay. The final chunk carries the complete reply verbatim.
// An empty reply is a valid empty assistant turn: one final empty chunk.
func (r *Relay) stream(ctx context.Context, sink EventSink, reply string) error {
	words := strings.Fields(reply)
	if len(words) == 0 {
		sink.Emit(model.NewEvent(model.EventStreamChunk, model.StreamChunk{Content: reply, IsFinal: true}))
		return nil
	}

	var prefix strings.Builder
	for i := 0; i < len(words)-1; i++ {
		if i > 0 {
			prefix.WriteByte(' ')
		}
		prefix.WriteString(words[i])
		sink.Emit(model.NewEvent(model.EventStreamChunk, model.StreamChunk{Content: prefix.String()}))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.streamDelay):
		}
	}

	sink.Emit(model.NewEvent(model.EventStreamChunk, model.StreamChunk{Content: reply, IsFinal: true}))
	return nil
}

func (r *Relay) reject(sink EventSink, kind model.ErrorKind) *model.RelayError {
	rerr := model.NewRelayError(kind)
	sink.Emit(rerr.Event())
	return rerr
}
