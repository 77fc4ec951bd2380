// Package playlist synthesizes HLS manifest documents. Manifests are built
// fresh on every request and never persisted, so a held manifest URL can
// always trigger re-resolution underneath.
package playlist

import (
	"fmt"
	"sort"
	"strings"

	"ytbridge/internal/extractor"
)

// Media builds a single-variant VOD playlist describing the whole remote
// resource as one segment. The segment URI must be the indirection endpoint,
// never a raw signed URL - that is what keeps the playlist valid long after
// the underlying signed URL expired.
func Media(title string, duration float64, segmentURI string) string {
	if duration <= 0 {
		// unknown duration, declare a generous session length
		duration = 6 * 3600
	}

	lines := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		fmt.Sprintf("#EXT-X-TARGETDURATION:%d", int(duration)+1),
		"#EXT-X-MEDIA-SEQUENCE:0",
		"#EXT-X-PLAYLIST-TYPE:VOD",
		fmt.Sprintf("#EXTINF:%.3f,%s", duration, title),
		segmentURI,
		"#EXT-X-ENDLIST",
	}

	return strings.Join(lines, "\n") + "\n"
}

// Master builds a master playlist with one stream entry per distinct video
// height, each pointing at its own single-variant playlist. Entries are
// ordered by ascending bandwidth.
func Master(variants []extractor.MediaVariant, subPlaylistURI func(height int) string) string {
	type stream struct {
		height    int
		width     int
		bandwidth int
	}

	byHeight := map[int]stream{}
	for _, v := range variants {
		if !v.HasVideo() || v.Height <= 0 {
			continue
		}

		// bitrate is reported in kbit/s, STREAM-INF wants bit/s
		bandwidth := int(v.Bitrate * 1000)

		if cur, ok := byHeight[v.Height]; !ok || bandwidth > cur.bandwidth {
			byHeight[v.Height] = stream{
				height:    v.Height,
				width:     v.Width,
				bandwidth: bandwidth,
			}
		}
	}

	streams := make([]stream, 0, len(byHeight))
	for _, s := range byHeight {
		streams = append(streams, s)
	}

	sort.Slice(streams, func(i, j int) bool {
		if streams[i].bandwidth != streams[j].bandwidth {
			return streams[i].bandwidth < streams[j].bandwidth
		}
		return streams[i].height < streams[j].height
	})

	lines := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
	}

	for _, s := range streams {
		lines = append(lines,
			fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d,NAME=\"%dp\"",
				s.bandwidth, s.width, s.height, s.height),
			subPlaylistURI(s.height),
		)
	}

	return strings.Join(lines, "\n") + "\n"
}
