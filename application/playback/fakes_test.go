package playback

import (
	"context"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"keygate/domain/dto"
	"keygate/domain/models"
	"keygate/domain/ports"
)

const (
	testPlaylistURL = "http://localhost:3000/protected_hls/video1/out.m3u8"
	testKeyURL      = "http://localhost:3000/key/video1"
)

// ========== Clock ==========

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance เดินเวลาแล้วยิง timer ที่ถึงกำหนดบน goroutine ของ test
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Pending ระยะเวลาจากตอนนี้ถึง timer ที่ยัง active
func (c *fakeClock) Pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t.at.Sub(c.now))
		}
	}
	return out
}

// ========== Token source ==========

type fakeTokens struct {
	clock *fakeClock
	ttl   time.Duration

	mu     sync.Mutex
	calls  int
	errs   map[int]error // ครั้งที่ n (เริ่ม 1) ให้ error
	block  chan struct{}
	tokens []string
}

func (f *fakeTokens) FetchPlaybackToken(ctx context.Context) (*dto.PlaybackTokenResponse, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	err := f.errs[n]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	exp := f.clock.Now().Add(f.ttl)
	claims := models.PlaybackClaims{
		Video: "video1",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        strconv.Itoa(n),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(f.clock.Now()),
		},
	}
	token, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if signErr != nil {
		return nil, signErr
	}

	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()

	return &dto.PlaybackTokenResponse{
		Provider:  "local",
		Token:     token,
		ExpiresAt: exp.Unix(),
		Playback:  dto.PlaybackDescriptor{VideoID: "video1", PlaylistURL: testPlaylistURL},
	}, nil
}

func (f *fakeTokens) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTokens) Token(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[i]
}

// ========== Engine ==========

type fakeEngine struct {
	opts ports.EngineOptions

	mu        sync.Mutex
	setup     ports.RequestSetup
	ops       []string
	destroyed bool
	playErr   error
}

func (e *fakeEngine) record(op string) {
	e.mu.Lock()
	e.ops = append(e.ops, op)
	e.mu.Unlock()
}

func (e *fakeEngine) SetRequestSetup(setup ports.RequestSetup) {
	e.mu.Lock()
	e.setup = setup
	e.mu.Unlock()
	e.record("SetRequestSetup")
}

func (e *fakeEngine) LoadSource(url string) { e.record("LoadSource " + url) }
func (e *fakeEngine) StartLoad()            { e.record("StartLoad") }
func (e *fakeEngine) StopLoad()             { e.record("StopLoad") }

func (e *fakeEngine) Play() error {
	e.record("Play")
	return e.playErr
}

func (e *fakeEngine) Destroy() {
	e.mu.Lock()
	e.destroyed = true
	e.mu.Unlock()
	e.record("Destroy")
}

func (e *fakeEngine) Ops() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ops...)
}

func (e *fakeEngine) LastOp() string {
	ops := e.Ops()
	if len(ops) == 0 {
		return ""
	}
	return ops[len(ops)-1]
}

func (e *fakeEngine) Destroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

// AuthorizationFor header ที่ request ไป url จะได้รับจาก interceptor ปัจจุบัน
func (e *fakeEngine) AuthorizationFor(url string) string {
	e.mu.Lock()
	setup := e.setup
	e.mu.Unlock()
	req := httptest.NewRequest("GET", url, nil)
	if setup != nil {
		setup(req)
	}
	return req.Header.Get("Authorization")
}

func (e *fakeEngine) Emit(ev ports.EngineEvent) {
	e.opts.OnEvent(ev)
}

type engineFactory struct {
	mu      sync.Mutex
	engines []*fakeEngine
	playErr error
	err     error
}

func (f *engineFactory) New(opts ports.EngineOptions) (ports.PlaybackEngine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	e := &fakeEngine{opts: opts, setup: opts.RequestSetup, playErr: f.playErr}
	f.engines = append(f.engines, e)
	return e, nil
}

func (f *engineFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

func (f *engineFactory) Last() *fakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

// ========== Harness ==========

type harness struct {
	clock   *fakeClock
	tokens  *fakeTokens
	engines *engineFactory
	ctrl    *Controller
}

func newHarness(t *testing.T, ttl time.Duration) *harness {
	t.Helper()
	clock := newFakeClock()
	h := &harness{
		clock:   clock,
		tokens:  &fakeTokens{clock: clock, ttl: ttl, errs: map[int]error{}},
		engines: &engineFactory{},
	}
	ctrl, err := NewController(Config{
		Tokens:    h.tokens,
		NewEngine: h.engines.New,
		Clock:     clock,
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	t.Cleanup(ctrl.Teardown)
	return h
}

func authError(status int) ports.EngineEvent {
	return ports.EngineEvent{
		Type:       ports.EngineEventError,
		Details:    ports.ErrorDetailsKeyLoad,
		URL:        testKeyURL,
		StatusCode: status,
	}
}
