package playback

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"keygate/domain/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRenewalDelay(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{"one hour", time.Hour, 3555 * time.Second},
		{"fifty seconds", 50 * time.Second, 5 * time.Second},
		{"fractional seconds are floored", 50900 * time.Millisecond, 5 * time.Second},
		{"sixty seconds", 60 * time.Second, 15 * time.Second},
		{"shorter than lead time", 30 * time.Second, 5 * time.Second},
		{"already expired", -10 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenewalDelay(tt.ttl))
		})
	}
}

func TestKeyRequestInterceptor(t *testing.T) {
	setup := KeyRequestInterceptor("tok", "")

	keyReq, _ := http.NewRequest(http.MethodGet, testKeyURL, nil)
	setup(keyReq)
	assert.Equal(t, "Bearer tok", keyReq.Header.Get("Authorization"))

	for _, u := range []string{
		testPlaylistURL,
		"http://localhost:3000/protected_hls/video1/seg_000.ts",
		"http://localhost:3000/keys.txt",
	} {
		req, _ := http.NewRequest(http.MethodGet, u, nil)
		setup(req)
		assert.Empty(t, req.Header.Get("Authorization"), u)
	}

	custom := KeyRequestInterceptor("tok", "/api/hls-key")
	req, _ := http.NewRequest(http.MethodGet, "http://localhost:3000/api/hls-key?video=video1", nil)
	custom(req)
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
}

func TestMount_StartsPlayback(t *testing.T) {
	h := newHarness(t, time.Hour)

	require.NoError(t, h.ctrl.Mount(context.Background()))

	assert.Equal(t, StatePlaying, h.ctrl.State())
	require.Equal(t, 1, h.engines.Count())
	engine := h.engines.Last()
	assert.Equal(t, []string{"LoadSource " + testPlaylistURL, "StartLoad", "Play"}, engine.Ops())
	assert.Equal(t, "Bearer "+h.tokens.Token(0), engine.AuthorizationFor(testKeyURL))
	assert.Empty(t, engine.AuthorizationFor(testPlaylistURL))
	assert.Equal(t, []time.Duration{3555 * time.Second}, h.clock.Pending())

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "video1", snap.VideoID)
	assert.Equal(t, testPlaylistURL, snap.PlaylistURL)
	assert.Equal(t, h.clock.Now().Add(time.Hour).Unix(), snap.ExpiresAt)
}

func TestMount_ShortTokenRenewsAfterFiveSeconds(t *testing.T) {
	h := newHarness(t, 50*time.Second)

	require.NoError(t, h.ctrl.Mount(context.Background()))
	assert.Equal(t, []time.Duration{5 * time.Second}, h.clock.Pending())

	h.clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, 1, h.tokens.Calls())

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, 2, h.tokens.Calls())
}

func TestMount_PlayRejectedKeepsPlaying(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.engines.playErr = errors.New("autoplay blocked")

	require.NoError(t, h.ctrl.Mount(context.Background()))
	assert.Equal(t, StatePlaying, h.ctrl.State())
}

func TestMount_TokenFailure(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.tokens.errs[1] = errors.New("connection refused")

	err := h.ctrl.Mount(context.Background())
	require.Error(t, err)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, MsgTokenFailed, snap.Message)
	assert.Zero(t, h.engines.Count())

	require.NoError(t, h.ctrl.Retry(context.Background()))
	assert.Equal(t, StatePlaying, h.ctrl.State())
}

func TestMount_Twice(t *testing.T) {
	h := newHarness(t, time.Hour)
	require.NoError(t, h.ctrl.Mount(context.Background()))

	err := h.ctrl.Mount(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, h.engines.Count())
}

func TestProactiveRenewal_ReplacesInterceptor(t *testing.T) {
	h := newHarness(t, time.Hour)
	require.NoError(t, h.ctrl.Mount(context.Background()))
	engine := h.engines.Last()

	var states []State
	var mu sync.Mutex
	h.ctrl.OnStateChange(func(s State, _ string) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	h.clock.Advance(3555 * time.Second)

	require.Equal(t, 2, h.tokens.Calls())
	assert.Equal(t, StatePlaying, h.ctrl.State())
	assert.Equal(t, 1, h.engines.Count(), "renewal reuses the engine")
	assert.Equal(t, []string{
		"LoadSource " + testPlaylistURL, "StartLoad", "Play",
		"StopLoad", "SetRequestSetup", "LoadSource " + testPlaylistURL, "StartLoad",
	}, engine.Ops())

	newToken := h.tokens.Token(1)
	assert.NotEqual(t, h.tokens.Token(0), newToken)
	assert.Equal(t, "Bearer "+newToken, engine.AuthorizationFor(testKeyURL))
	assert.Equal(t, []time.Duration{3555 * time.Second}, h.clock.Pending())

	mu.Lock()
	assert.Equal(t, []State{StateRenewing, StatePlaying}, states)
	mu.Unlock()
}

func TestProactiveRenewal_FailureStopsLoading(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.tokens.errs[2] = errors.New("server unavailable")
	require.NoError(t, h.ctrl.Mount(context.Background()))
	engine := h.engines.Last()

	h.clock.Advance(time.Hour)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, MsgTokenFailed, snap.Message)
	assert.Equal(t, "StopLoad", engine.LastOp())
	assert.NotContains(t, engine.Ops()[3:], "StartLoad")
	assert.Empty(t, h.clock.Pending())
}

func TestTeardown_BeforeRenewalFires(t *testing.T) {
	h := newHarness(t, 50*time.Second)
	require.NoError(t, h.ctrl.Mount(context.Background()))
	engine := h.engines.Last()

	h.ctrl.Teardown()
	h.ctrl.Teardown()

	h.clock.Advance(time.Minute)

	assert.Equal(t, 1, h.tokens.Calls(), "no token request after teardown")
	assert.Equal(t, StateTerminated, h.ctrl.State())
	assert.True(t, engine.Destroyed())
	assert.Empty(t, h.clock.Pending())

	assert.ErrorIs(t, h.ctrl.Mount(context.Background()), ErrTerminated)
	assert.ErrorIs(t, h.ctrl.Retry(context.Background()), ErrTerminated)
}

func TestTeardown_DuringTokenFetchDiscardsResult(t *testing.T) {
	h := newHarness(t, time.Hour)
	release := make(chan struct{})
	h.tokens.block = release

	done := make(chan error, 1)
	go func() {
		done <- h.ctrl.Mount(context.Background())
	}()

	require.Eventually(t, func() bool { return h.tokens.Calls() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, StateLoading, h.ctrl.State())

	h.ctrl.Teardown()
	close(release)

	assert.ErrorIs(t, <-done, ErrTerminated)
	assert.Zero(t, h.engines.Count(), "no engine is created after teardown")
	assert.Equal(t, StateTerminated, h.ctrl.State())
}

func TestAuthError_RenewsOnceThenGivesUp(t *testing.T) {
	h := newHarness(t, time.Hour)
	require.NoError(t, h.ctrl.Mount(context.Background()))
	engine := h.engines.Last()

	engine.Emit(authError(http.StatusUnauthorized))

	assert.Equal(t, 2, h.tokens.Calls())
	assert.Equal(t, StatePlaying, h.ctrl.State())
	assert.Equal(t, "Bearer "+h.tokens.Token(1), engine.AuthorizationFor(testKeyURL))
	assert.False(t, engine.Destroyed())

	// ยังไม่ได้ key ใหม่ก็ fail ซ้ำ
	engine.Emit(authError(http.StatusForbidden))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, MsgAuthFailed, snap.Message)
	assert.Equal(t, 2, h.tokens.Calls(), "no renewal loop")
	assert.Equal(t, "StopLoad", engine.LastOp())
	assert.Empty(t, h.clock.Pending())
}

func TestAuthError_KeyLoadedResetsRetry(t *testing.T) {
	h := newHarness(t, time.Hour)
	require.NoError(t, h.ctrl.Mount(context.Background()))
	engine := h.engines.Last()

	engine.Emit(authError(http.StatusUnauthorized))
	engine.Emit(ports.EngineEvent{Type: ports.EngineEventKeyLoaded, URL: testKeyURL})
	engine.Emit(authError(0))

	assert.Equal(t, 3, h.tokens.Calls())
	assert.Equal(t, StatePlaying, h.ctrl.State())
}

func TestAuthError_RenewalFails(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.tokens.errs[2] = errors.New("network down")
	require.NoError(t, h.ctrl.Mount(context.Background()))
	engine := h.engines.Last()

	engine.Emit(authError(http.StatusUnauthorized))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, MsgAuthFailed, snap.Message)
	assert.Equal(t, "StopLoad", engine.LastOp())
	assert.False(t, engine.Destroyed())
}

func TestFatalError_DestroysEngine(t *testing.T) {
	tests := []struct {
		name string
		ev   ports.EngineEvent
	}{
		{"fatal flag", ports.EngineEvent{Type: ports.EngineEventError, Details: ports.ErrorDetailsFragDecrypt, Fatal: true}},
		{"key not found", authError(http.StatusNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, time.Hour)
			require.NoError(t, h.ctrl.Mount(context.Background()))
			engine := h.engines.Last()

			engine.Emit(tt.ev)

			snap := h.ctrl.Snapshot()
			assert.Equal(t, StateError, snap.State)
			assert.Equal(t, MsgPlaybackError, snap.Message)
			assert.True(t, engine.Destroyed())
			assert.Empty(t, h.clock.Pending())

			h.clock.Advance(2 * time.Hour)
			assert.Equal(t, 1, h.tokens.Calls(), "no automatic retry")
		})
	}
}

func TestOtherError_IsIgnored(t *testing.T) {
	h := newHarness(t, time.Hour)
	require.NoError(t, h.ctrl.Mount(context.Background()))
	engine := h.engines.Last()

	engine.Emit(ports.EngineEvent{
		Type:       ports.EngineEventError,
		Details:    ports.ErrorDetailsFragLoad,
		StatusCode: http.StatusBadGateway,
	})

	assert.Equal(t, StatePlaying, h.ctrl.State())
	assert.Equal(t, 1, h.tokens.Calls())
	assert.False(t, engine.Destroyed())
}

func TestRetry_OnlyFromError(t *testing.T) {
	h := newHarness(t, time.Hour)
	assert.ErrorIs(t, h.ctrl.Retry(context.Background()), ErrInvalidState)

	require.NoError(t, h.ctrl.Mount(context.Background()))
	assert.ErrorIs(t, h.ctrl.Retry(context.Background()), ErrInvalidState)

	first := h.engines.Last()
	first.Emit(ports.EngineEvent{Type: ports.EngineEventError, Fatal: true})
	require.Equal(t, StateError, h.ctrl.State())

	require.NoError(t, h.ctrl.Retry(context.Background()))
	assert.Equal(t, StatePlaying, h.ctrl.State())
	assert.Equal(t, 2, h.engines.Count())
	assert.Equal(t, "", h.ctrl.Snapshot().Message)

	// event จาก engine ตัวเก่าไม่มีผล
	first.Emit(ports.EngineEvent{Type: ports.EngineEventError, Fatal: true})
	assert.Equal(t, StatePlaying, h.ctrl.State())
	assert.False(t, h.engines.Last().Destroyed())
}

func TestRetry_AfterAuthFailureReplacesEngine(t *testing.T) {
	h := newHarness(t, time.Hour)
	require.NoError(t, h.ctrl.Mount(context.Background()))
	first := h.engines.Last()

	first.Emit(authError(http.StatusUnauthorized))
	first.Emit(authError(http.StatusUnauthorized))
	require.Equal(t, StateError, h.ctrl.State())

	require.NoError(t, h.ctrl.Retry(context.Background()))
	assert.True(t, first.Destroyed(), "prior engine is torn down before a new one starts")
	assert.Equal(t, 2, h.engines.Count())
	assert.Equal(t, []time.Duration{3555 * time.Second}, h.clock.Pending())
}

func TestEngineFactoryFailure(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.engines.err = errors.New("no decoder")

	require.Error(t, h.ctrl.Mount(context.Background()))
	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, MsgPlaybackError, snap.Message)
}

func TestObserver_ReceivesTransitions(t *testing.T) {
	h := newHarness(t, time.Hour)

	var got []State
	h.ctrl.OnStateChange(func(s State, _ string) { got = append(got, s) })

	require.NoError(t, h.ctrl.Mount(context.Background()))
	h.ctrl.Teardown()

	assert.Equal(t, []State{StateLoading, StatePlaying, StateTerminated}, got)
}

func TestController_RealClockTeardownLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	engines := &engineFactory{}
	ctrl, err := NewController(Config{
		Tokens:    &fakeTokens{clock: clock, ttl: time.Hour, errs: map[int]error{}},
		NewEngine: engines.New,
	})
	require.NoError(t, err)

	require.NoError(t, ctrl.Mount(context.Background()))
	ctrl.Teardown()

	require.NoError(t, ctrl.Wait(context.Background()))
	assert.True(t, engines.Last().Destroyed())
}

func TestNewController_RequiresCollaborators(t *testing.T) {
	_, err := NewController(Config{NewEngine: (&engineFactory{}).New})
	assert.Error(t, err)

	_, err = NewController(Config{Tokens: &fakeTokens{}})
	assert.Error(t, err)
}
