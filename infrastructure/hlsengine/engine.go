package hlsengine

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/grafov/m3u8"

	"keygate/domain/ports"
	"keygate/pkg/logger"
)

const (
	methodAES128 = "AES-128"
	methodNone   = "NONE"

	maxPlaylistBytes = 4 << 20
	maxKeyBytes      = 1 << 10
)

var (
	ErrNoVariants     = errors.New("master playlist has no variants")
	ErrUnsupportedKey = errors.New("unsupported encryption method")
	ErrBadKeyLength   = errors.New("key must be 16 bytes")
	ErrBadPadding     = errors.New("invalid PKCS7 padding")
)

// Config สำหรับ Engine
type Config struct {
	HTTPClient *http.Client
	// Sink ปลายทางของ segment ที่ถอดรหัสแล้ว (ไฟล์ .ts / pipe ไป ffplay)
	Sink io.Writer
}

// Engine ตัวเล่น HLS แบบ VOD ขั้นต่ำ: โหลด playlist, ดึง key, ถอดรหัส AES-128 แล้วเขียนลง Sink
//
// ทุก request ผ่าน RequestSetup ก่อนส่ง, event ส่งผ่าน OnEvent บน goroutine ของ loader
type Engine struct {
	client  *http.Client
	sink    io.Writer
	onEvent func(ports.EngineEvent)

	mu        sync.Mutex
	setup     ports.RequestSetup
	source    string
	next      int // index ของ segment ถัดไปที่ยังไม่ได้ส่งออก
	keys      map[string][]byte
	gen       uint64 // เปลี่ยนทุกครั้งที่ loader เดิมต้องหยุด
	cancel    context.CancelFunc
	destroyed bool
	playing   bool
}

// New สร้าง Engine
func New(cfg Config, opts ports.EngineOptions) (*Engine, error) {
	if cfg.Sink == nil {
		return nil, errors.New("hlsengine: sink is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	onEvent := opts.OnEvent
	if onEvent == nil {
		onEvent = func(ports.EngineEvent) {}
	}
	return &Engine{
		client:  client,
		sink:    cfg.Sink,
		onEvent: onEvent,
		setup:   opts.RequestSetup,
		keys:    make(map[string][]byte),
	}, nil
}

// Factory คืน ports.EngineFactory ที่สร้าง Engine ด้วย cfg เดียวกัน
func Factory(cfg Config) ports.EngineFactory {
	return func(opts ports.EngineOptions) (ports.PlaybackEngine, error) {
		return New(cfg, opts)
	}
}

func (e *Engine) SetRequestSetup(setup ports.RequestSetup) {
	e.mu.Lock()
	e.setup = setup
	e.mu.Unlock()
}

// LoadSource ตั้ง playlist ใหม่ (หยุด loader เดิม)
// URL เดิม = เล่นต่อจาก segment ล่าสุด, URL ใหม่ = เริ่มต้นใหม่
func (e *Engine) LoadSource(playlistURL string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.stopLocked()
	if playlistURL != e.source {
		e.source = playlistURL
		e.next = 0
		e.keys = make(map[string][]byte)
	}
}

func (e *Engine) StartLoad() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed || e.source == "" {
		return
	}
	e.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	gen := e.gen
	source := e.source
	go e.run(ctx, gen, source)
}

func (e *Engine) StopLoad() {
	e.mu.Lock()
	e.stopLocked()
	e.mu.Unlock()
}

// Play ไม่มี output device จริง แค่ mark ว่ากำลังเล่น
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return errors.New("hlsengine: engine destroyed")
	}
	e.playing = true
	return nil
}

// Destroy หยุด loader ทันที ไม่รอ goroutine จบ
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.stopLocked()
	e.destroyed = true
	e.playing = false
	e.keys = nil
}

// Position index ของ segment ถัดไป
func (e *Engine) Position() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.next
}

func (e *Engine) stopLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
}

// current true ถ้า loader รุ่นนี้ยังมีสิทธิ์ทำงาน
func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.destroyed && e.gen == gen
}

func (e *Engine) emit(gen uint64, ev ports.EngineEvent) {
	if !e.current(gen) {
		return
	}
	e.onEvent(ev)
}

// ═══════════════════════════════════════════════════════════════════════════════
// Loader
// ═══════════════════════════════════════════════════════════════════════════════

type segment struct {
	url string
	seq uint64
	key *m3u8.Key
}

func (e *Engine) run(ctx context.Context, gen uint64, source string) {
	segments, err := e.loadPlaylist(ctx, source)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.emit(gen, errorEvent(err, true))
		return
	}
	e.emit(gen, ports.EngineEvent{Type: ports.EngineEventManifestParsed, URL: source})

	for {
		e.mu.Lock()
		if e.destroyed || e.gen != gen {
			e.mu.Unlock()
			return
		}
		idx := e.next
		e.mu.Unlock()

		if idx >= len(segments) {
			logger.Debug("HLS playlist finished", "url", source, "segments", len(segments))
			return
		}

		if err := e.deliver(ctx, gen, segments[idx]); err != nil {
			if ctx.Err() != nil {
				return
			}
			var le *loadError
			fatal := errors.As(err, &le) && le.fatal
			e.emit(gen, errorEvent(err, fatal))
			return
		}

		e.mu.Lock()
		if e.gen != gen || e.destroyed {
			e.mu.Unlock()
			return
		}
		e.next = idx + 1
		e.mu.Unlock()

		e.emit(gen, ports.EngineEvent{Type: ports.EngineEventFragLoaded, URL: segments[idx].url})
	}
}

func (e *Engine) loadPlaylist(ctx context.Context, source string) ([]segment, error) {
	body, status, err := e.fetch(ctx, source, maxPlaylistBytes)
	if err != nil {
		return nil, &loadError{details: ports.ErrorDetailsManifestLoad, url: source, status: status, err: err, fatal: true}
	}

	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), true)
	if err != nil {
		return nil, &loadError{details: ports.ErrorDetailsManifestParse, url: source, err: err, fatal: true}
	}

	if listType == m3u8.MASTER {
		variantURL, err := firstVariant(playlist.(*m3u8.MasterPlaylist), source)
		if err != nil {
			return nil, &loadError{details: ports.ErrorDetailsManifestParse, url: source, err: err, fatal: true}
		}
		return e.loadPlaylist(ctx, variantURL)
	}

	return mediaSegments(playlist.(*m3u8.MediaPlaylist), source)
}

func firstVariant(master *m3u8.MasterPlaylist, base string) (string, error) {
	for _, v := range master.Variants {
		if v == nil || v.URI == "" {
			continue
		}
		return resolveURL(base, v.URI)
	}
	return "", ErrNoVariants
}

func mediaSegments(media *m3u8.MediaPlaylist, base string) ([]segment, error) {
	// EXT-X-KEY ติดอยู่กับ segment แรกที่มันประกาศ segment ถัดไปใช้ key เดิม
	currentKey := media.Key
	out := make([]segment, 0, media.Count())
	for i, s := range media.Segments {
		if s == nil || s.URI == "" {
			continue
		}
		if s.Key != nil {
			currentKey = s.Key
		}
		u, err := resolveURL(base, s.URI)
		if err != nil {
			return nil, &loadError{details: ports.ErrorDetailsManifestParse, url: base, err: err, fatal: true}
		}
		var key *m3u8.Key
		if currentKey != nil && currentKey.Method != "" && !strings.EqualFold(currentKey.Method, methodNone) {
			k := *currentKey
			if k.URI != "" {
				if k.URI, err = resolveURL(base, k.URI); err != nil {
					return nil, &loadError{details: ports.ErrorDetailsManifestParse, url: base, err: err, fatal: true}
				}
			}
			key = &k
		}
		out = append(out, segment{url: u, seq: media.SeqNo + uint64(i), key: key})
	}
	return out, nil
}

// deliver โหลด key (ถ้ายังไม่มี), โหลด segment, ถอดรหัส แล้วเขียนลง sink
func (e *Engine) deliver(ctx context.Context, gen uint64, seg segment) error {
	var plain []byte

	body, status, err := e.fetch(ctx, seg.url, 0)
	if err != nil {
		return &loadError{details: ports.ErrorDetailsFragLoad, url: seg.url, status: status, err: err}
	}

	if seg.key == nil {
		plain = body
	} else {
		if !strings.EqualFold(seg.key.Method, methodAES128) {
			return &loadError{details: ports.ErrorDetailsFragDecrypt, url: seg.url, err: fmt.Errorf("%w: %s", ErrUnsupportedKey, seg.key.Method), fatal: true}
		}
		key, err := e.keyFor(ctx, gen, seg.key.URI)
		if err != nil {
			return err
		}
		iv, err := segmentIV(seg.key.IV, seg.seq)
		if err != nil {
			return &loadError{details: ports.ErrorDetailsFragDecrypt, url: seg.url, err: err, fatal: true}
		}
		plain, err = decryptAES128(body, key, iv)
		if err != nil {
			return &loadError{details: ports.ErrorDetailsFragDecrypt, url: seg.url, err: err, fatal: true}
		}
	}

	if !e.current(gen) {
		return context.Canceled
	}
	if _, err := e.sink.Write(plain); err != nil {
		return &loadError{details: ports.ErrorDetailsMediaOutput, url: seg.url, err: err, fatal: true}
	}
	return nil
}

// keyFor ดึง key ครั้งเดียวต่อ URI แล้วเก็บไว้
func (e *Engine) keyFor(ctx context.Context, gen uint64, keyURL string) ([]byte, error) {
	e.mu.Lock()
	key, ok := e.keys[keyURL]
	e.mu.Unlock()
	if ok {
		return key, nil
	}

	key, status, err := e.fetch(ctx, keyURL, maxKeyBytes)
	if err != nil {
		return nil, &loadError{details: ports.ErrorDetailsKeyLoad, url: keyURL, status: status, err: err}
	}
	if len(key) != aes.BlockSize {
		return nil, &loadError{details: ports.ErrorDetailsFragDecrypt, url: keyURL, err: ErrBadKeyLength, fatal: true}
	}

	e.mu.Lock()
	if e.gen == gen && e.keys != nil {
		e.keys[keyURL] = key
	}
	e.mu.Unlock()

	e.emit(gen, ports.EngineEvent{Type: ports.EngineEventKeyLoaded, URL: keyURL})
	return key, nil
}

// fetch GET แล้วคืน body, status (0 = ไม่มี response)
func (e *Engine) fetch(ctx context.Context, rawURL string, limit int64) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	e.mu.Lock()
	setup := e.setup
	e.mu.Unlock()
	if setup != nil {
		setup(req)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read body: %w", err)
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, resp.StatusCode, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return body, resp.StatusCode, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// Decrypt
// ═══════════════════════════════════════════════════════════════════════════════

// segmentIV IV จาก EXT-X-KEY หรือ media sequence number (big-endian 128 bit)
func segmentIV(ivAttr string, seq uint64) ([]byte, error) {
	if ivAttr == "" {
		iv := make([]byte, aes.BlockSize)
		binary.BigEndian.PutUint64(iv[8:], seq)
		return iv, nil
	}
	raw := strings.TrimPrefix(strings.TrimPrefix(ivAttr, "0x"), "0X")
	if len(raw) < 2*aes.BlockSize {
		raw = strings.Repeat("0", 2*aes.BlockSize-len(raw)) + raw
	}
	iv, err := hex.DecodeString(raw)
	if err != nil || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("invalid IV %q", ivAttr)
	}
	return iv, nil
}

func decryptAES128(data, key, iv []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return pkcs7Unpad(out)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-n], nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// Helpers
// ═══════════════════════════════════════════════════════════════════════════════

type loadError struct {
	details string
	url     string
	status  int
	err     error
	fatal   bool
}

func (l *loadError) Error() string {
	return fmt.Sprintf("%s %s: %v", l.details, l.url, l.err)
}

func (l *loadError) Unwrap() error { return l.err }

func errorEvent(err error, fatal bool) ports.EngineEvent {
	ev := ports.EngineEvent{Type: ports.EngineEventError, Fatal: fatal, Err: err}
	var le *loadError
	if errors.As(err, &le) {
		ev.Details = le.details
		ev.URL = le.url
		ev.StatusCode = le.status
	}
	return ev
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid uri %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
