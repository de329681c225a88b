package serviceimpl

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/domain/dto"
	"keygate/domain/ports"
	"keygate/pkg/utils"
)

type fakeCheckoutPublisher struct {
	mu     sync.Mutex
	events []*ports.CheckoutEvent
	err    error
}

func (f *fakeCheckoutPublisher) PublishCheckoutCreated(ctx context.Context, event *ports.CheckoutEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakeCheckoutPublisher) Close() error { return nil }

func TestCheckoutService_CreateSession(t *testing.T) {
	pub := &fakeCheckoutPublisher{}
	svc := NewCheckoutService("http://localhost:3000/", pub)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	resp, err := svc.CreateSession(context.Background(), &dto.CreateCheckoutSessionRequest{
		VideoID:  "video1",
		DeviceID: "dev-1",
		UserID:   "user-1",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.SessionID, "fake_"))
	assert.Equal(t, "http://localhost:3000/success?session_id="+url.QueryEscape(resp.SessionID), resp.URL)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, resp.SessionID, ev.SessionID)
	assert.Equal(t, "video1", ev.VideoID)
	assert.Equal(t, "dev-1", ev.DeviceID)
	assert.Equal(t, "user-1", ev.UserID)
	assert.Equal(t, fixed, ev.CreatedAt)
}

func TestCheckoutService_UniqueSessions(t *testing.T) {
	svc := NewCheckoutService("http://x", nil)
	a, err := svc.CreateSession(context.Background(), &dto.CreateCheckoutSessionRequest{VideoID: "video1"})
	require.NoError(t, err)
	b, err := svc.CreateSession(context.Background(), &dto.CreateCheckoutSessionRequest{VideoID: "video1"})
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}

func TestCheckoutService_PublishFailureIsBestEffort(t *testing.T) {
	pub := &fakeCheckoutPublisher{err: errors.New("nats down")}
	svc := NewCheckoutService("http://x", pub)

	resp, err := svc.CreateSession(context.Background(), &dto.CreateCheckoutSessionRequest{VideoID: "video1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.URL)
}

func TestCheckoutService_RejectsBadVideo(t *testing.T) {
	svc := NewCheckoutService("http://x", nil)
	_, err := svc.CreateSession(context.Background(), &dto.CreateCheckoutSessionRequest{VideoID: "../x"})
	assert.ErrorIs(t, err, utils.ErrInvalidVideoID)
}
