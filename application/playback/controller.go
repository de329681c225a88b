package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"keygate/domain/ports"
	"keygate/pkg/logger"
)

var (
	ErrTerminated   = errors.New("playback session terminated")
	ErrInvalidState = errors.New("operation not allowed in current state")
)

// Config สำหรับ Controller
type Config struct {
	Tokens        ports.PlaybackTokenSource
	NewEngine     ports.EngineFactory
	KeyPathPrefix string // default "/key/"
	Clock         Clock  // default เวลาจริง
}

type stateChange struct {
	state   State
	message string
}

// Controller Session Controller ฝั่ง client
//
// ขอ token, สร้าง engine พร้อม key interceptor, ต่ออายุ token ก่อนหมดอายุ
// และต่ออายุทันทีหนึ่งครั้งเมื่อ engine โหลด key ไม่ผ่านเพราะ auth
//
// mu คุม state ทั้งหมด, transition คุมให้ mount/renew/retry ทำทีละอัน
// Teardown ใช้แค่ mu จึงไม่ต้องรอ token fetch ที่ค้างอยู่
type Controller struct {
	tokens    ports.PlaybackTokenSource
	newEngine ports.EngineFactory
	keyPrefix string
	clock     Clock

	// ยกเลิกทุก request ที่ค้างเมื่อ Teardown
	ctx    context.Context
	cancel context.CancelFunc

	transition sync.Mutex

	mu            sync.Mutex
	state         State
	message       string
	session       *session
	engine        ports.PlaybackEngine
	engineID      uint64
	timer         Timer
	timerID       uint64
	authRetryUsed bool
	observer      func(State, string)
	pending       []stateChange
}

func NewController(cfg Config) (*Controller, error) {
	if cfg.Tokens == nil {
		return nil, errors.New("playback: token source is required")
	}
	if cfg.NewEngine == nil {
		return nil, errors.New("playback: engine factory is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	prefix := cfg.KeyPathPrefix
	if prefix == "" {
		prefix = DefaultKeyPathPrefix
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		tokens:    cfg.Tokens,
		newEngine: cfg.NewEngine,
		keyPrefix: prefix,
		clock:     clock,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateUninitialized,
	}, nil
}

// OnStateChange ตั้ง observer (เรียกนอก lock, ห้าม block นาน)
func (c *Controller) OnStateChange(fn func(State, string)) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{State: c.state, Message: c.message}
	if c.session != nil {
		snap.VideoID = c.session.videoID
		snap.PlaylistURL = c.session.playlistURL
		if !c.session.expiresAt.IsZero() {
			snap.ExpiresAt = c.session.expiresAt.Unix()
		}
	}
	return snap
}

// Mount เริ่ม session แรก: UNINITIALIZED → LOADING → PLAYING
func (c *Controller) Mount(ctx context.Context) error {
	return c.load(ctx, StateUninitialized)
}

// Retry เริ่มใหม่ทั้งหมดตั้งแต่ขอ token ใช้ได้เฉพาะตอน ERROR
func (c *Controller) Retry(ctx context.Context) error {
	return c.load(ctx, StateError)
}

// Teardown ปิด session ทุกสถานะ → TERMINATED เรียกซ้ำได้
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	c.cancelTimerLocked()
	c.destroyEngineLocked()
	c.session = nil
	c.cancel()
	c.setStateLocked(StateTerminated, "")
	c.unlockAndNotify()
}

// ═══════════════════════════════════════════════════════════════════════════════
// Load / Renew
// ═══════════════════════════════════════════════════════════════════════════════

func (c *Controller) load(ctx context.Context, from State) error {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return ErrTerminated
	}
	if c.state != from {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	c.authRetryUsed = false
	c.setStateLocked(StateLoading, "")
	c.unlockAndNotify()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	resp, err := c.tokens.FetchPlaybackToken(ctx)

	c.mu.Lock()
	if c.state == StateTerminated {
		// ถูก teardown ระหว่างรอ ทิ้งผลลัพธ์
		c.mu.Unlock()
		return ErrTerminated
	}
	if err != nil {
		c.setStateLocked(StateError, MsgTokenFailed)
		c.unlockAndNotify()
		logger.Warn("Playback token request failed", "error", err)
		return fmt.Errorf("failed to fetch playback token: %w", err)
	}

	sess := newSession(resp)
	if err := c.startEngineLocked(sess); err != nil {
		c.setStateLocked(StateError, MsgPlaybackError)
		c.unlockAndNotify()
		return err
	}
	c.setStateLocked(StatePlaying, "")
	c.unlockAndNotify()

	logger.Info("Playback session started",
		"video", sess.videoID,
		"expires_at", sess.expiresAt,
	)
	return nil
}

// startEngineLocked แทน engine เดิม (ถ้ามี) ด้วย engine ใหม่ที่ผูกกับ session นี้
func (c *Controller) startEngineLocked(sess *session) error {
	c.cancelTimerLocked()
	c.destroyEngineLocked()

	c.engineID++
	id := c.engineID
	engine, err := c.newEngine(ports.EngineOptions{
		RequestSetup: KeyRequestInterceptor(sess.token, c.keyPrefix),
		OnEvent: func(ev ports.EngineEvent) {
			c.handleEvent(id, ev)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create playback engine: %w", err)
	}

	c.engine = engine
	c.session = sess
	engine.LoadSource(sess.playlistURL)
	engine.StartLoad()
	if err := engine.Play(); err != nil {
		// autoplay อาจโดน block ได้ เล่นต่อเมื่อผู้ใช้สั่ง
		logger.Debug("Play not started", "error", err)
	}
	c.scheduleRenewalLocked(sess)
	return nil
}

func (c *Controller) scheduleRenewalLocked(sess *session) {
	c.cancelTimerLocked()
	if sess.expiresAt.IsZero() {
		logger.Warn("Playback token has no expiry, renewal not scheduled", "video", sess.videoID)
		return
	}

	delay := RenewalDelay(sess.expiresAt.Sub(c.clock.Now()))
	c.timerID++
	id := c.timerID
	c.timer = c.clock.AfterFunc(delay, func() {
		c.onRenewalTimer(id)
	})
	logger.Debug("Token renewal scheduled", "video", sess.videoID, "in", delay)
}

func (c *Controller) onRenewalTimer(id uint64) {
	c.mu.Lock()
	if id != c.timerID || c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	c.renew(false)
}

// renew PLAYING → RENEWING → PLAYING
// หยุดโหลดก่อนขอ token เพื่อไม่ให้มี key request ด้วย token เก่า
func (c *Controller) renew(reactive bool) {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	if c.state != StatePlaying || c.engine == nil {
		c.mu.Unlock()
		return
	}
	engine := c.engine
	engine.StopLoad()
	c.cancelTimerLocked()
	c.setStateLocked(StateRenewing, "")
	c.unlockAndNotify()

	resp, err := c.tokens.FetchPlaybackToken(c.ctx)

	c.mu.Lock()
	if c.state != StateRenewing || c.engine != engine {
		// teardown หรือ fatal error ระหว่างรอ
		c.mu.Unlock()
		return
	}
	if err != nil {
		msg := MsgTokenFailed
		if reactive {
			msg = MsgAuthFailed
		}
		engine.StopLoad()
		c.setStateLocked(StateError, msg)
		c.unlockAndNotify()
		logger.Warn("Playback token renewal failed", "reactive", reactive, "error", err)
		return
	}

	sess := newSession(resp)
	c.session = sess
	engine.SetRequestSetup(KeyRequestInterceptor(sess.token, c.keyPrefix))
	engine.LoadSource(sess.playlistURL)
	engine.StartLoad()
	c.scheduleRenewalLocked(sess)
	c.setStateLocked(StatePlaying, "")
	c.unlockAndNotify()

	logger.Info("Playback token renewed",
		"video", sess.videoID,
		"reactive", reactive,
		"expires_at", sess.expiresAt,
	)
}

// ═══════════════════════════════════════════════════════════════════════════════
// Engine events
// ═══════════════════════════════════════════════════════════════════════════════

func (c *Controller) handleEvent(id uint64, ev ports.EngineEvent) {
	c.mu.Lock()
	if id != c.engineID || c.engine == nil || c.state == StateTerminated {
		// event จาก engine ที่ถูกทำลายไปแล้ว
		c.mu.Unlock()
		return
	}

	switch ev.Type {
	case ports.EngineEventKeyLoaded:
		c.authRetryUsed = false
		c.mu.Unlock()
		return
	case ports.EngineEventError:
	default:
		c.mu.Unlock()
		return
	}

	switch kind := ev.Kind(); kind {
	case ports.ErrorKindAuth:
		if c.state != StatePlaying {
			c.mu.Unlock()
			return
		}
		if c.authRetryUsed {
			c.engine.StopLoad()
			c.cancelTimerLocked()
			c.setStateLocked(StateError, MsgAuthFailed)
			c.unlockAndNotify()
			logger.Warn("Key authorization failed again, giving up",
				"details", ev.Details,
				"status", ev.StatusCode,
			)
			return
		}
		c.authRetryUsed = true
		c.mu.Unlock()

		logger.Info("Key authorization failed, renewing token",
			"details", ev.Details,
			"status", ev.StatusCode,
		)
		c.renew(true)

	case ports.ErrorKindFatal:
		c.cancelTimerLocked()
		c.destroyEngineLocked()
		c.setStateLocked(StateError, MsgPlaybackError)
		c.unlockAndNotify()
		logger.Error("Fatal playback error",
			"details", ev.Details,
			"status", ev.StatusCode,
			"error", ev.Err,
		)

	default:
		c.mu.Unlock()
		logger.Warn("Playback engine error",
			"kind", kind.String(),
			"details", ev.Details,
			"status", ev.StatusCode,
			"error", ev.Err,
		)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// Helpers (ต้องถือ mu)
// ═══════════════════════════════════════════════════════════════════════════════

func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerID++
}

func (c *Controller) destroyEngineLocked() {
	if c.engine != nil {
		c.engine.Destroy()
		c.engine = nil
	}
	c.engineID++
}

func (c *Controller) setStateLocked(state State, message string) {
	if c.state == state && c.message == message {
		return
	}
	logger.Debug("Playback state changed", "from", c.state.String(), "to", state.String())
	c.state = state
	c.message = message
	c.pending = append(c.pending, stateChange{state: state, message: message})
}

// unlockAndNotify ปล่อย mu แล้วแจ้ง observer ตามลำดับที่เปลี่ยน
func (c *Controller) unlockAndNotify() {
	pending := c.pending
	c.pending = nil
	observer := c.observer
	c.mu.Unlock()

	if observer == nil {
		return
	}
	for _, change := range pending {
		observer(change.state, change.message)
	}
}

// Wait รอจน session ถูก teardown หรือ ctx หมด
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.ctx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
