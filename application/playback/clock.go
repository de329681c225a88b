package playback

import "time"

// Clock แยกเวลาออกมาให้ test ควบคุมได้
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer timer ที่ยกเลิกได้ (*time.Timer implement อยู่แล้ว)
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
