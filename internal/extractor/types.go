package extractor

import (
	"context"
	"fmt"
	"time"
)

// MediaVariant is one concrete rendition of a video as reported by the
// extractor, together with its time-limited signed URL. Variants are never
// mutated after extraction.
type MediaVariant struct {
	FormatID   string    `json:"format_id"`
	Ext        string    `json:"ext"`
	Height     int       `json:"height"`
	Width      int       `json:"width"`
	FPS        float64   `json:"fps,omitempty"`
	VideoCodec string    `json:"vcodec"`
	AudioCodec string    `json:"acodec"`
	Bitrate    float64   `json:"tbr,omitempty"`
	FileSize   int64     `json:"filesize,omitempty"`
	Protocol   string    `json:"protocol"`
	SignedURL  string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
}

func (v MediaVariant) HasVideo() bool {
	return v.VideoCodec != "" && v.VideoCodec != "none"
}

func (v MediaVariant) HasAudio() bool {
	return v.AudioCodec != "" && v.AudioCodec != "none"
}

// QualityLabel returns the human-readable quality, e.g. "720p" or "audio".
func (v MediaVariant) QualityLabel() string {
	if v.Height > 0 {
		return fmt.Sprintf("%dp", v.Height)
	}
	return "audio"
}

// VideoInfo is the result of one extraction call: video-level metadata plus
// the complete variant set.
type VideoInfo struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Duration    float64        `json:"duration"`
	Uploader    string         `json:"uploader,omitempty"`
	UploadDate  string         `json:"upload_date,omitempty"`
	Thumbnail   string         `json:"thumbnail,omitempty"`
	ViewCount   int64          `json:"view_count,omitempty"`
	IsLive      bool           `json:"is_live"`
	LiveStatus  string         `json:"live_status,omitempty"`
	Variants    []MediaVariant `json:"formats"`
}

// Live reports whether the source is a live or upcoming broadcast rather
// than finished media.
func (v *VideoInfo) Live() bool {
	return v.IsLive || v.LiveStatus == "is_live" || v.LiveStatus == "is_upcoming"
}

// Extractor turns a source URL into the available media variants. The
// concrete implementation shells out to an external binary and is therefore
// network-bound; callers pass a context to bound the call.
type Extractor interface {
	Extract(ctx context.Context, sourceURL string) (*VideoInfo, error)
	Version(ctx context.Context) (string, error)
}
