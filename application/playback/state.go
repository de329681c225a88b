package playback

// State สถานะของ Session Controller
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StatePlaying
	StateRenewing
	StateError
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateLoading:
		return "LOADING"
	case StatePlaying:
		return "PLAYING"
	case StateRenewing:
		return "RENEWING"
	case StateError:
		return "ERROR"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// ข้อความที่แสดงต่อผู้ใช้
const (
	MsgAuthFailed    = "Authorization failed while fetching key. Please refresh the page."
	MsgPlaybackError = "Playback error. Try reloading the page."
	MsgTokenFailed   = "Failed to get playback token."
)

// Snapshot สถานะ ณ ขณะหนึ่งสำหรับ UI
type Snapshot struct {
	State       State
	Message     string
	VideoID     string
	PlaylistURL string
	ExpiresAt   int64 // unix seconds, 0 = ไม่ทราบ
}
