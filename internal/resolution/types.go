package resolution

import (
	"errors"
	"time"

	"ytbridge/internal/extractor"
)

// ErrTimeout is returned when a resolution did not finish within the
// configured bound. The shared in-flight extraction keeps running and still
// populates the cache for later requests.
var ErrTimeout = errors.New("resolution timed out")

// Selection is one resolved (source URL, quality) pair: the chosen variant
// plus the full extraction result it was chosen from.
type Selection struct {
	SourceURL string
	Quality   string

	Video   *extractor.VideoInfo
	Variant extractor.MediaVariant

	ResolvedAt time.Time
}

type Config struct {
	// TTL is the upper bound on how long a resolved selection may be reused.
	TTL time.Duration
	// Margin is subtracted from the signed URL expiry, so an entry is
	// discarded before the URL actually dies mid-request.
	Margin time.Duration
	// Timeout bounds how long one request waits for resolution.
	Timeout time.Duration
}
