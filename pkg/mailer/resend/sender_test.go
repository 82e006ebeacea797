package resend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/techdigest/pkg/mailer"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.ErrorIs(t, err, ErrNoAPIKey)
}

func TestSender_Send(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	t.Cleanup(srv.Close)

	s, err := New(Config{APIKey: "re_test", SenderName: "Tech Digest", BaseURL: srv.URL})
	require.NoError(t, err)

	err = s.Send(context.Background(), &mailer.Email{
		From:    "digest@example.com",
		To:      []string{"me@example.com"},
		Subject: "Tech Events This Week",
		HTML:    "<p>hi</p>",
		Text:    "hi",
		Tags:    mailer.SimpleTags("weekly"),
	})
	require.NoError(t, err)

	assert.Equal(t, `"Tech Digest" <digest@example.com>`, got["from"])
	assert.Equal(t, "Tech Events This Week", got["subject"])
	assert.Equal(t, "hi", got["text"])
}

func TestSender_Send_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"statusCode":401,"name":"validation_error","message":"API key is invalid"}`))
	}))
	t.Cleanup(srv.Close)

	s, err := New(Config{APIKey: "re_bad", BaseURL: srv.URL})
	require.NoError(t, err)

	err = s.Send(context.Background(), &mailer.Email{
		From: "a@example.com", To: []string{"b@example.com"}, Subject: "x", HTML: "<p>x</p>",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resend: failed to send email")
}

func TestTagValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "true", tagValue(struct{}{}))
	assert.Equal(t, "true", tagValue(nil))
	assert.Equal(t, "weekly", tagValue("weekly"))
	assert.Equal(t, "false", tagValue(false))
	assert.Equal(t, "7", tagValue(7))
	assert.Equal(t, "1.5", tagValue(1.5))
}
