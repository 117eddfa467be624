package chatgpt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/answer"
)

// patchRequest is a recorded conversation PATCH.
type patchRequest struct {
	Path          string
	Authorization string
	Body          map[string]any
}

// fakeUpstream serves the session, completion and backend endpoints.
type fakeUpstream struct {
	*httptest.Server

	sessionHits atomic.Int32
	sessionFunc func(w http.ResponseWriter)

	completionFunc func(w http.ResponseWriter, r *http.Request)
	streamFunc     func(w http.ResponseWriter, r *http.Request)
	modelsFunc     func(w http.ResponseWriter)

	mu         sync.Mutex
	patches    []patchRequest
	lastBody   map[string]any
	feedbacks  []Feedback
	streamAuth []string
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{
		sessionFunc: func(w http.ResponseWriter) {
			fmt.Fprint(w, `{"accessToken":"tok-1"}`)
		},
		completionFunc: func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[{"text":"Hi there"}]}`)
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		f.sessionHits.Add(1)
		f.sessionFunc(w)
	})
	mux.HandleFunc("POST /complete", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.lastBody = body
		f.mu.Unlock()
		f.completionFunc(w, r)
	})
	mux.HandleFunc("POST /backend-api/conversation", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.lastBody = body
		f.streamAuth = append(f.streamAuth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		f.streamFunc(w, r)
	})
	mux.HandleFunc("PATCH /backend-api/conversation/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.patches = append(f.patches, patchRequest{
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		f.mu.Unlock()
		fmt.Fprint(w, `{"success":true}`)
	})
	mux.HandleFunc("POST /backend-api/conversation/message_feedback", func(w http.ResponseWriter, r *http.Request) {
		var fb Feedback
		json.NewDecoder(r.Body).Decode(&fb)
		f.mu.Lock()
		f.feedbacks = append(f.feedbacks, fb)
		f.mu.Unlock()
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("GET /backend-api/models", func(w http.ResponseWriter, r *http.Request) {
		if f.modelsFunc == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.modelsFunc(w)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) options(extra ...Option) []Option {
	return append([]Option{
		WithBackendURL(f.URL + "/backend-api"),
		WithSessionURL(f.URL + "/api/auth/session"),
		WithCompletionURL(f.URL + "/complete"),
		WithHTTPClient(f.Client()),
	}, extra...)
}

func (f *fakeUpstream) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

func (f *fakeUpstream) body() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

func collect(t *testing.T, call *answer.Call) []answer.Event {
	t.Helper()
	var events []answer.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range call.Events() {
			events = append(events, ev)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("call did not finish")
	}
	return events
}

func assertSingleDoneLast(t *testing.T, events []answer.Event) answer.Event {
	t.Helper()
	require.NotEmpty(t, events)
	doneCount := 0
	for _, ev := range events {
		if ev.IsDone() {
			doneCount++
		}
	}
	assert.Equal(t, 1, doneCount)
	last := events[len(events)-1]
	assert.True(t, last.IsDone())
	return last
}

func TestCompletion_GenerateAnswer(t *testing.T) {
	t.Run("emits answer then done", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		events := collect(t, call)

		require.Len(t, events, 2)
		assert.Equal(t, answer.EventAnswer, events[0].Type)
		require.NotNil(t, events[0].Answer)
		assert.Equal(t, "Hi there", events[0].Answer.Text)
		_, err = uuid.Parse(events[0].Answer.MessageID)
		assert.NoError(t, err)
		_, err = uuid.Parse(events[0].Answer.ConversationID)
		assert.NoError(t, err)
		assert.NotEqual(t, events[0].Answer.MessageID, events[0].Answer.ConversationID)

		done := assertSingleDoneLast(t, events)
		assert.NoError(t, done.Err)
	})

	t.Run("sends system and user messages with model", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		collect(t, call)

		body := up.body()
		assert.Equal(t, DefaultCompletionModel, body["model"])
		messages, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 2)
		assert.Equal(t, map[string]any{"role": "system", "content": answer.DefaultSystemPrompt}, messages[0])
		assert.Equal(t, map[string]any{"role": "user", "content": "Hello"}, messages[1])
	})

	t.Run("per-call options override model and system prompt", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options(WithSystemPrompt("be brief"))...)

		call, err := p.GenerateAnswer(context.Background(), "Hello", answer.WithModel("gpt-4o"))
		require.NoError(t, err)
		collect(t, call)

		body := up.body()
		assert.Equal(t, "gpt-4o", body["model"])
		messages := body["messages"].([]any)
		assert.Equal(t, "be brief", messages[0].(map[string]any)["content"])
	})

	t.Run("conversation ids differ across calls", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options()...)

		first, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		second, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)

		a := collect(t, first)[0].Answer
		b := collect(t, second)[0].Answer
		require.NotNil(t, a)
		require.NotNil(t, b)
		assert.NotEqual(t, a.ConversationID, b.ConversationID)
	})

	t.Run("empty text yields only done", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.completionFunc = func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[{"text":""}]}`)
		}
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		events := collect(t, call)

		require.Len(t, events, 1)
		assert.NoError(t, assertSingleDoneLast(t, events).Err)
	})

	t.Run("missing choices yields only done", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.completionFunc = func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		events := collect(t, call)
		require.Len(t, events, 1)
	})

	t.Run("upstream failure yields one done with transport error", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.completionFunc = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":"boom"}`)
		}
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		events := collect(t, call)

		require.Len(t, events, 1)
		done := assertSingleDoneLast(t, events)
		require.Error(t, done.Err)
		var te *answer.TransportError
		require.ErrorAs(t, done.Err, &te)
		assert.Equal(t, `{"error":"boom"}`, te.Error())
	})

	t.Run("malformed response yields one done with error", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.completionFunc = func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		}
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		done := assertSingleDoneLast(t, collect(t, call))
		assert.ErrorContains(t, done.Err, "decode response")
	})

	t.Run("cancellation yields one done with abort error", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.completionFunc = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}
		p := NewCompletion(up.options()...)

		ctx, cancel := context.WithCancel(context.Background())
		call, err := p.GenerateAnswer(ctx, "Hello")
		require.NoError(t, err)
		time.AfterFunc(50*time.Millisecond, cancel)

		events := collect(t, call)
		require.Len(t, events, 1)
		done := assertSingleDoneLast(t, events)
		assert.True(t, answer.IsAborted(done.Err))
	})

	t.Run("empty prompt is rejected", func(t *testing.T) {
		p := NewCompletion(WithAccessToken("tok"))
		call, err := p.GenerateAnswer(context.Background(), "   ")
		assert.ErrorIs(t, err, answer.ErrEmptyPrompt)
		assert.Nil(t, call)
	})

	t.Run("Wait adapts events to a sink", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)

		var types []answer.EventType
		err = call.Wait(func(ev answer.Event) { types = append(types, ev.Type) })
		require.NoError(t, err)
		assert.Equal(t, []answer.EventType{answer.EventAnswer, answer.EventDone}, types)
	})
}

func TestCompletion_Auth(t *testing.T) {
	t.Run("challenge is an auth error", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.sessionFunc = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusForbidden)
		}
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		done := assertSingleDoneLast(t, collect(t, call))

		var ae *answer.AuthError
		require.ErrorAs(t, done.Err, &ae)
		assert.Equal(t, answer.AuthChallenge, ae.Reason)
		assert.Nil(t, up.body(), "completion must not be requested")
	})

	t.Run("missing token is unauthenticated", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.sessionFunc = func(w http.ResponseWriter) {
			fmt.Fprint(w, `{}`)
		}
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		done := assertSingleDoneLast(t, collect(t, call))

		var ae *answer.AuthError
		require.ErrorAs(t, done.Err, &ae)
		assert.Equal(t, answer.AuthUnauthenticated, ae.Reason)
		assert.True(t, answer.IsAuth(done.Err))
	})

	t.Run("token is cached across calls", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options()...)

		for range 3 {
			call, err := p.GenerateAnswer(context.Background(), "Hello")
			require.NoError(t, err)
			collect(t, call)
		}
		assert.Equal(t, int32(1), up.sessionHits.Load())
	})
}

func TestCompletion_Cleanup(t *testing.T) {
	t.Run("hides the conversation exactly once", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		events := collect(t, call)
		convID := events[0].Answer.ConversationID

		call.Cleanup()
		call.Cleanup()

		require.Eventually(t, func() bool { return up.patchCount() == 1 }, 2*time.Second, 10*time.Millisecond)
		assert.Never(t, func() bool { return up.patchCount() > 1 }, 200*time.Millisecond, 20*time.Millisecond)

		up.mu.Lock()
		patch := up.patches[0]
		up.mu.Unlock()
		assert.Equal(t, "/backend-api/conversation/"+convID, patch.Path)
		assert.Equal(t, "Bearer tok-1", patch.Authorization)
		assert.Equal(t, map[string]any{"is_visible": false}, patch.Body)
	})

	t.Run("no answer means no network call", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.completionFunc = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		collect(t, call)

		call.Cleanup()
		assert.Never(t, func() bool { return up.patchCount() > 0 }, 200*time.Millisecond, 20*time.Millisecond)
	})

	t.Run("cleanup outlives a cancelled call context", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options()...)

		ctx, cancel := context.WithCancel(context.Background())
		call, err := p.GenerateAnswer(ctx, "Hello")
		require.NoError(t, err)
		collect(t, call)
		cancel()

		call.Cleanup()
		require.Eventually(t, func() bool { return up.patchCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("auto cleanup", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello", answer.WithAutoCleanup())
		require.NoError(t, err)
		collect(t, call)

		require.Eventually(t, func() bool { return up.patchCount() == 1 }, 2*time.Second, 10*time.Millisecond)
		call.Cleanup()
		assert.Never(t, func() bool { return up.patchCount() > 1 }, 200*time.Millisecond, 20*time.Millisecond)
	})

	t.Run("failed cleanup is not surfaced", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options(WithBackendURL(up.URL + "/missing"))...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		collect(t, call)

		assert.NotPanics(t, call.Cleanup)
	})
}

func TestModelLookup(t *testing.T) {
	t.Run("uses first listed model", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.modelsFunc = func(w http.ResponseWriter) {
			fmt.Fprint(w, `{"models":[{"slug":"model-a","title":"A","max_tokens":4096},{"slug":"model-b"}]}`)
		}
		p := NewCompletion(up.options(WithModelLookup())...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		collect(t, call)
		assert.Equal(t, "model-a", up.body()["model"])
	})

	t.Run("falls back to default on failure", func(t *testing.T) {
		up := newFakeUpstream(t)
		p := NewCompletion(up.options(WithModelLookup())...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		collect(t, call)
		assert.Equal(t, DefaultCompletionModel, up.body()["model"])
	})

	t.Run("disabled lookup never calls the backend", func(t *testing.T) {
		up := newFakeUpstream(t)
		var hit atomic.Bool
		up.modelsFunc = func(w http.ResponseWriter) {
			hit.Store(true)
			fmt.Fprint(w, `{"models":[]}`)
		}
		p := NewCompletion(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		collect(t, call)
		assert.False(t, hit.Load())
	})
}

func streamUpdate(convID, msgID, text string) string {
	data, _ := json.Marshal(map[string]any{
		"message": map[string]any{
			"id":      msgID,
			"content": map[string]any{"content_type": "text", "parts": []string{text}},
		},
		"conversation_id": convID,
	})
	return "data: " + string(data) + "\n\n"
}

func TestConversation_GenerateAnswer(t *testing.T) {
	t.Run("streams cumulative answers then done", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.streamFunc = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, text := range []string{"Hi", "Hi there"} {
				io.WriteString(w, streamUpdate("conv-9", "msg-1", text))
				flusher.Flush()
			}
			io.WriteString(w, ": ping\n\ndata: not-json\n\n")
			io.WriteString(w, "data: [DONE]\n\n")
		}
		p := NewConversation(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		events := collect(t, call)

		require.Len(t, events, 3)
		assert.Equal(t, answer.Answer{Text: "Hi", MessageID: "msg-1", ConversationID: "conv-9"}, *events[0].Answer)
		assert.Equal(t, answer.Answer{Text: "Hi there", MessageID: "msg-1", ConversationID: "conv-9"}, *events[1].Answer)
		assert.NoError(t, assertSingleDoneLast(t, events).Err)

		body := up.body()
		assert.Equal(t, "next", body["action"])
		assert.Equal(t, DefaultConversationModel, body["model"])
		up.mu.Lock()
		assert.Equal(t, []string{"Bearer tok-1"}, up.streamAuth)
		up.mu.Unlock()

		call.Cleanup()
		require.Eventually(t, func() bool { return up.patchCount() == 1 }, 2*time.Second, 10*time.Millisecond)
		up.mu.Lock()
		assert.Equal(t, "/backend-api/conversation/conv-9", up.patches[0].Path)
		up.mu.Unlock()
	})

	t.Run("ignores updates after done marker", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.streamFunc = func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, streamUpdate("c", "m", "final"))
			io.WriteString(w, "data: [DONE]\n\n")
			io.WriteString(w, streamUpdate("c", "m", "ghost"))
		}
		p := NewConversation(up.options()...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		text, err := call.Text()
		require.NoError(t, err)
		assert.Equal(t, "final", text)
	})

	t.Run("unauthorized drops the cached token", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.streamFunc = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail":"expired"}`)
		}
		p := NewConversation(up.options()...)

		for range 2 {
			call, err := p.GenerateAnswer(context.Background(), "Hello")
			require.NoError(t, err)
			done := assertSingleDoneLast(t, collect(t, call))
			assert.Equal(t, http.StatusUnauthorized, answer.StatusCodeOf(done.Err))
			assert.Equal(t, `{"detail":"expired"}`, done.Err.Error())
		}
		assert.Equal(t, int32(2), up.sessionHits.Load())
	})

	t.Run("cancellation mid-stream yields abort", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.streamFunc = func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, streamUpdate("c", "m", "partial"))
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}
		p := NewConversation(up.options()...)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		call, err := p.GenerateAnswer(ctx, "Hello")
		require.NoError(t, err)

		var events []answer.Event
		for ev := range call.Events() {
			events = append(events, ev)
			if ev.Type == answer.EventAnswer {
				cancel()
			}
		}
		done := assertSingleDoneLast(t, events)
		assert.True(t, answer.IsAborted(done.Err))
	})

	t.Run("static token skips the session endpoint", func(t *testing.T) {
		up := newFakeUpstream(t)
		up.streamFunc = func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, streamUpdate("c", "m", "ok"))
		}
		p := NewConversation(up.options(WithAccessToken("static"))...)

		call, err := p.GenerateAnswer(context.Background(), "Hello")
		require.NoError(t, err)
		collect(t, call)

		assert.Zero(t, up.sessionHits.Load())
		up.mu.Lock()
		assert.Equal(t, []string{"Bearer static"}, up.streamAuth)
		up.mu.Unlock()
	})
}

func TestBackend(t *testing.T) {
	t.Run("sends message feedback", func(t *testing.T) {
		up := newFakeUpstream(t)
		b := NewBackend(up.URL+"/backend-api/", up.Client())

		err := b.SendMessageFeedback(context.Background(), "tok", Feedback{
			MessageID:      "m1",
			ConversationID: "c1",
			Rating:         "thumbsUp",
		})
		require.NoError(t, err)

		up.mu.Lock()
		defer up.mu.Unlock()
		require.Len(t, up.feedbacks, 1)
		assert.Equal(t, "thumbsUp", up.feedbacks[0].Rating)
	})

	t.Run("models error is a transport error", func(t *testing.T) {
		up := newFakeUpstream(t)
		b := NewBackend(up.URL+"/backend-api", up.Client())

		_, err := b.Models(context.Background(), "tok")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, answer.StatusCodeOf(err))
		assert.True(t, strings.HasPrefix(err.Error(), "404"))
	})
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = StaticToken("").Token(context.Background())
	assert.True(t, answer.IsAuth(err))
}
