package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/domain/dto"
)

func TestFetchPlaybackToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "video1", r.URL.Query().Get("video"))
		json.NewEncoder(w).Encode(dto.PlaybackTokenResponse{
			Provider:  "local",
			Token:     "tok",
			ExpiresAt: 1700000000,
			Playback:  dto.PlaybackDescriptor{VideoID: "video1", PlaylistURL: "http://x/protected_hls/video1/out.m3u8"},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", VideoID: "video1"})
	out, err := c.FetchPlaybackToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", out.Token)
	assert.Equal(t, "video1", out.Playback.VideoID)
}

func TestFetchPlaybackToken_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"down"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).FetchPlaybackToken(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "down", statusErr.Message)
}

func TestFetchPlaybackToken_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(Config{BaseURL: url}).FetchPlaybackToken(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var in dto.CreateCheckoutSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "device-1", in.DeviceID)
		json.NewEncoder(w).Encode(dto.CreateCheckoutSessionResponse{URL: "http://x/success?session_id=fake_1", SessionID: "fake_1"})
	}))
	defer srv.Close()

	out, err := NewClient(Config{BaseURL: srv.URL}).CreateCheckoutSession(context.Background(), &dto.CreateCheckoutSessionRequest{
		VideoID:  "video1",
		DeviceID: "device-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "fake_1", out.SessionID)
}
