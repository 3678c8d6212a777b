package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetmail/internal/model"
)

func TestPixel(t *testing.T) {
	assert.Equal(t,
		"https://t.example.com/pixel/abc.png?cb=xyz",
		PixelURL("https://t.example.com", "abc", "xyz"))
	assert.Equal(t,
		`<img src="https://t.example.com/pixel/abc.png?cb=x%26y" width="1" height="1"/>`,
		PixelTag("https://t.example.com", "abc", "x&y"))
}

func TestRegister(t *testing.T) {
	var got map[string]string
	var path, ctype string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		ctype = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).Register(context.Background(), model.TrackingRecord{
		TrackID:        "t-1",
		RecipientEmail: "ana@x.com",
		SenderEmail:    "me@x.com",
		Subject:        "Hi",
		MessageID:      "msg-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "/_register_send", path)
	assert.Equal(t, "application/json", ctype)
	assert.Equal(t, map[string]string{
		"track_id":         "t-1",
		"recipient_email":  "ana@x.com",
		"sender_email":     "me@x.com",
		"subject":          "Hi",
		"gmail_message_id": "msg-1",
	}, got)
}

func TestRegisterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	require.Error(t, New(srv.URL, time.Second).Register(context.Background(), model.TrackingRecord{}))

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	require.Error(t, New(slow.URL, 50*time.Millisecond).Register(context.Background(), model.TrackingRecord{}))
}
