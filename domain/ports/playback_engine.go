package ports

import (
	"context"
	"fmt"
	"net/http"

	"keygate/domain/dto"
)

// ═══════════════════════════════════════════════════════════════════════════════
// Playback Engine Port - ตัวเล่น HLS (parse manifest, fetch key, decrypt segments)
// ═══════════════════════════════════════════════════════════════════════════════

// RequestSetup ถูกเรียกกับทุก request ที่ engine ส่ง ก่อนส่งจริง
// (เทียบได้กับ xhrSetup ของ player ใน browser)
type RequestSetup func(req *http.Request)

type EngineEventType string

const (
	EngineEventManifestParsed EngineEventType = "manifestParsed"
	EngineEventKeyLoaded      EngineEventType = "keyLoaded"
	EngineEventFragLoaded     EngineEventType = "fragLoaded"
	EngineEventError          EngineEventType = "error"
)

// Error details ที่ engine รายงาน
const (
	ErrorDetailsManifestLoad  = "manifestLoadError"
	ErrorDetailsManifestParse = "manifestParsingError"
	ErrorDetailsKeyLoad       = "keyLoadError"
	ErrorDetailsFragLoad      = "fragLoadError"
	ErrorDetailsFragDecrypt   = "fragDecryptError"
	ErrorDetailsMediaOutput   = "mediaOutputError"
)

// EngineEvent event ที่ engine ส่งกลับมาให้ Session Controller
type EngineEvent struct {
	Type       EngineEventType
	Details    string // ใช้กับ EngineEventError
	URL        string
	StatusCode int // 0 = ไม่มี HTTP response (network error)
	Fatal      bool
	Err        error
}

// PlaybackEngine ตัวเล่นที่ Session Controller ควบคุม
// ทุก method ต้องไม่ block รอ callback ของ OnEvent
type PlaybackEngine interface {
	// SetRequestSetup เปลี่ยน interceptor ของ request ถัดไปทั้งหมด
	SetRequestSetup(setup RequestSetup)

	LoadSource(playlistURL string)
	StartLoad()
	StopLoad()

	// Play เริ่มเล่น (best-effort เหมือน autoplay ที่ browser อาจ block)
	Play() error

	// Destroy ปล่อย resource ทั้งหมด เรียกซ้ำได้
	Destroy()
}

// EngineOptions ค่าที่ใช้สร้าง engine ใหม่
type EngineOptions struct {
	RequestSetup RequestSetup
	// OnEvent ถูกเรียกจาก goroutine ของ engine เอง ห้ามเรียกจากใน method ของ PlaybackEngine
	OnEvent func(EngineEvent)
}

// EngineFactory สร้าง PlaybackEngine instance ใหม่
type EngineFactory func(opts EngineOptions) (PlaybackEngine, error)

// PlaybackTokenSource ที่มาของ playback token ฝั่ง client (GET /token)
type PlaybackTokenSource interface {
	FetchPlaybackToken(ctx context.Context) (*dto.PlaybackTokenResponse, error)
}

// ErrorKind ประเภทของ engine error ที่ Session Controller ใช้ตัดสินใจ
type ErrorKind int

const (
	ErrorKindNone  ErrorKind = iota // ไม่ใช่ error event
	ErrorKindAuth                   // ต่ออายุ token แล้วโหลดใหม่ได้หนึ่งครั้ง
	ErrorKindFatal                  // ทำลาย engine รอผู้ใช้กด retry
	ErrorKindOther                  // log แล้วปล่อยให้ engine จัดการเอง
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindAuth:
		return "auth"
	case ErrorKindFatal:
		return "fatal"
	case ErrorKindOther:
		return "other"
	default:
		return "none"
	}
}

// Kind จัดประเภท event
//   - key 404 = ไม่มี key ให้ video นี้ ต่อ token ไปก็ไม่ช่วย
//   - 401/403 หรือโหลด key ไม่สำเร็จ (รวม network error) = auth
//   - fatal flag = fatal
func (e EngineEvent) Kind() ErrorKind {
	if e.Type != EngineEventError {
		return ErrorKindNone
	}
	if e.Details == ErrorDetailsKeyLoad && e.StatusCode == http.StatusNotFound {
		return ErrorKindFatal
	}
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrorKindAuth
	}
	if e.Details == ErrorDetailsKeyLoad {
		return ErrorKindAuth
	}
	if e.Fatal {
		return ErrorKindFatal
	}
	return ErrorKindOther
}

// EngineError ห่อ error event เพื่อส่งต่อเป็น error ปกติ
type EngineError struct {
	Event EngineEvent
}

func (e *EngineError) Error() string {
	if e.Event.StatusCode != 0 {
		return fmt.Sprintf("playback engine %s (status %d): %s", e.Event.Details, e.Event.StatusCode, e.Event.URL)
	}
	if e.Event.Err != nil {
		return fmt.Sprintf("playback engine %s: %v", e.Event.Details, e.Event.Err)
	}
	return "playback engine " + e.Event.Details
}

func (e *EngineError) Unwrap() error { return e.Event.Err }

// Kind ประเภทของ error
func (e *EngineError) Kind() ErrorKind { return e.Event.Kind() }
