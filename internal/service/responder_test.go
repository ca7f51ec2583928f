package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookResponderSuccess(t *testing.T) {
	var got webhookRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "Hola, soy tu asistente legal"})
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, 5*time.Second)
	reply, err := responder.Ask(context.Background(), "conv-1", "user-1", "¿Qué es un contrato?")

	require.NoError(t, err)
	assert.Equal(t, "Hola, soy tu asistente legal", reply)
	assert.Equal(t, "conv-1", got.ConversationID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "¿Qué es un contrato?", got.Content)
}

func TestWebhookResponderNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, 5*time.Second)
	_, err := responder.Ask(context.Background(), "conv-1", "user-1", "hola")
	assert.Error(t, err)
}

func TestWebhookResponderMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, 5*time.Second)
	_, err := responder.Ask(context.Background(), "conv-1", "user-1", "hola")
	assert.Error(t, err)
}

func TestWebhookResponderEmptyBodyIsEmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, 5*time.Second)
	reply, err := responder.Ask(context.Background(), "conv-1", "user-1", "hola")
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestWebhookResponderMissingReplyFieldIsEmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"done"}`))
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, 5*time.Second)
	reply, err := responder.Ask(context.Background(), "conv-1", "user-1", "hola")
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestWebhookResponderContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel r.Context(); otherwise the handler
		// blocks forever and server.Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := responder.Ask(ctx, "conv-1", "user-1", "hola")
		errCh <- err
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Ask did not return after cancellation")
	}
}

func TestWebhookResponderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	responder := NewWebhookResponder(server.URL, 20*time.Millisecond)
	_, err := responder.Ask(context.Background(), "conv-1", "user-1", "hola")
	assert.Error(t, err)
}
