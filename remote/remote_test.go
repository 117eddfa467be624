package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/internal/version"
)

func TestFetchConfig(t *testing.T) {
	t.Run("decodes config and sends version", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			assert.Equal(t, "/api/config", r.URL.Path)
			assert.Equal(t, version.Version, r.Header.Get("x-version"))
			w.Write([]byte(`{"chatgpt_webapp_model_name":"text-davinci-002-render","openai_model_names":["gpt-4o","gpt-5-mini"]}`))
		}))
		defer server.Close()

		c := New(server.URL + "/")
		cfg, err := c.FetchConfig(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "text-davinci-002-render", cfg.ChatGPTWebappModelName)
		assert.Equal(t, []string{"gpt-4o", "gpt-5-mini"}, cfg.OpenAIModelNames)

		_, err = c.FetchConfig(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(1), hits.Load(), "config is cached")
	})

	t.Run("status error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := New(server.URL).FetchConfig(context.Background())
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, answer.StatusCodeOf(err))
		assert.True(t, answer.IsTransient(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := New(server.URL).FetchConfig(context.Background())
		assert.ErrorContains(t, err, "decode response")
	})

	t.Run("cancelled", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(server.URL).FetchConfig(ctx)
		assert.True(t, answer.IsAborted(err))
	})
}

func TestFetchPromotion(t *testing.T) {
	t.Run("built-in promotion", func(t *testing.T) {
		c := New("http://127.0.0.1:1")
		p, err := c.FetchPromotion(context.Background())
		require.NoError(t, err)
		assert.Equal(t, DefaultPromotion, *p)
	})

	t.Run("remote promotion", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/p", r.URL.Path)
			w.Write([]byte(`{"url":"https://example.test","title":"Hi","footer":{"text":"f","url":"https://f.test"}}`))
		}))
		defer server.Close()

		p, err := New(server.URL, WithPromotions()).FetchPromotion(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "https://example.test", p.URL)
		require.NotNil(t, p.Footer)
		assert.Equal(t, "f", p.Footer.Text)
		assert.Nil(t, p.Image)
	})
}
