package dto

// PlaybackTokenRequest query ของ GET /token
type PlaybackTokenRequest struct {
	Video string `query:"video" validate:"omitempty,videoid"`
}

// PlaybackDescriptor บอก client ว่าจะเล่นอะไรจากที่ไหน
type PlaybackDescriptor struct {
	VideoID     string `json:"videoId"`
	PlaylistURL string `json:"playlistUrl"`
}

// PlaybackTokenResponse response ของ GET /token
type PlaybackTokenResponse struct {
	Provider  string             `json:"provider"`
	Token     string             `json:"token"`
	ExpiresAt int64              `json:"expiresAt"`
	Playback  PlaybackDescriptor `json:"playback"`
}
