package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytbridge/internal/config"
	"ytbridge/internal/extractor"
	"ytbridge/internal/resolution"
)

type stubExtractor struct {
	calls int32
	info  func(call int32) *extractor.VideoInfo
	err   error
}

func (s *stubExtractor) Extract(ctx context.Context, sourceURL string) (*extractor.VideoInfo, error) {
	call := atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.info(call), nil
}

func (s *stubExtractor) Version(ctx context.Context) (string, error) {
	return "2026.01.01", nil
}

func ladderInfo(expiresAt time.Time) func(int32) *extractor.VideoInfo {
	return func(int32) *extractor.VideoInfo {
		return &extractor.VideoInfo{
			ID:       "vid",
			Title:    "test video",
			Duration: 212,
			Uploader: "someone",
			Variants: []extractor.MediaVariant{
				{FormatID: "a", Height: 360, Width: 640, VideoCodec: "avc1", AudioCodec: "mp4a", Bitrate: 400, Ext: "mp4", SignedURL: "https://cdn.example.com/360", ExpiresAt: expiresAt},
				{FormatID: "b", Height: 480, Width: 854, VideoCodec: "avc1", AudioCodec: "mp4a", Bitrate: 700, Ext: "mp4", SignedURL: "https://cdn.example.com/480", ExpiresAt: expiresAt},
				{FormatID: "c", Height: 720, Width: 1280, VideoCodec: "avc1", AudioCodec: "mp4a", Bitrate: 1500, Ext: "mp4", SignedURL: "https://cdn.example.com/720", ExpiresAt: expiresAt},
				{FormatID: "d", Height: 1080, Width: 1920, VideoCodec: "avc1", AudioCodec: "mp4a", Bitrate: 4000, Ext: "mp4", SignedURL: "https://cdn.example.com/1080", ExpiresAt: expiresAt},
				{FormatID: "e", Height: 0, VideoCodec: "none", AudioCodec: "mp4a", Bitrate: 128, Ext: "m4a", SignedURL: "https://cdn.example.com/audio", ExpiresAt: expiresAt},
			},
		}
	}
}

func newTestServer(t *testing.T, ex extractor.Extractor, cfg *config.Server) *httptest.Server {
	t.Helper()

	if cfg == nil {
		cfg = &config.Server{}
	}

	res := resolution.New(ex, resolution.Config{
		TTL:     time.Minute,
		Margin:  30 * time.Second,
		Timeout: 5 * time.Second,
	})

	router := chi.NewRouter()
	New(cfg, res, ex).Mount(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp, readAll(t, resp)
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	buf := new(strings.Builder)
	_, err := io.Copy(buf, resp.Body)
	require.NoError(t, err)
	return buf.String()
}

func TestPlaylistExactQuality(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, nil)

	resp, body := get(t, srv.URL+"/api/m3u8?url=https://example.com/v&quality=720")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.apple.mpegurl", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "#EXTM3U\n"))
	assert.Contains(t, body, "#EXT-X-ENDLIST")
	assert.Contains(t, body, "quality=720")
	assert.NotContains(t, body, "cdn.example.com", "manifest must never embed a signed URL")

	// the manifest's segment indirection must resolve to the 720 variant
	var segment string
	for _, line := range strings.Split(body, "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			segment = line
		}
	}
	require.NotEmpty(t, segment)

	resp, _ = get(t, srv.URL+segment)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://cdn.example.com/720", resp.Header.Get("Location"))
}

func TestPlaylistClosestBelow(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, nil)

	resp, body := get(t, srv.URL+"/api/m3u8?url=https://example.com/v&quality=900")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var segment string
	for _, line := range strings.Split(body, "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			segment = line
		}
	}

	resp, _ = get(t, srv.URL+segment)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://cdn.example.com/720", resp.Header.Get("Location"), "900 has no exact match, closest below is 720")
}

func TestAuthenticationDenied(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, &config.Server{APIKey: "secret"})

	for _, path := range []string{
		"/api/m3u8?url=https://example.com/v",
		"/api/formats?url=https://example.com/v",
		"/api/stream-url?url=https://example.com/v",
		"/api/info?url=https://example.com/v",
		"/api/stream?url=not-even-a-url",
	} {
		resp, body := get(t, srv.URL+path)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.NotContains(t, body, "url", "denial must not leak URL validity")
	}

	assert.Equal(t, int32(0), atomic.LoadInt32(&ex.calls), "gate denial must never reach the extractor")
}

func TestAuthenticationHeaderAndQuery(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, &config.Server{APIKey: "secret"})

	// query parameter
	resp, _ := get(t, srv.URL+"/api/m3u8?url=https://example.com/v&api_key=secret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// header
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/info?url=https://example.com/v", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestPlaylistEmbedsAPIKeyForPlayers(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, &config.Server{APIKey: "secret"})

	resp, body := get(t, srv.URL+"/api/m3u8?url=https://example.com/v&quality=720&api_key=secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// players cannot send headers when fetching segments
	assert.Contains(t, body, "api_key=secret")
}

func TestStreamReresolvesAfterExpiry(t *testing.T) {
	// signed URLs die within the safety margin, so nothing is cached and
	// every access to the stable indirection URL gets a fresh redirect
	ex := &stubExtractor{info: func(call int32) *extractor.VideoInfo {
		info := ladderInfo(time.Now().Add(10 * time.Second))(call)
		for i := range info.Variants {
			info.Variants[i].SignedURL = fmt.Sprintf("%s?gen=%d", info.Variants[i].SignedURL, call)
		}
		return info
	}}
	srv := newTestServer(t, ex, nil)

	streamURL := srv.URL + "/api/stream?url=https://example.com/v&quality=720"

	resp, _ := get(t, streamURL)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	first := resp.Header.Get("Location")

	resp, _ = get(t, streamURL)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	second := resp.Header.Get("Location")

	assert.Equal(t, "https://cdn.example.com/720?gen=1", first)
	assert.Equal(t, "https://cdn.example.com/720?gen=2", second, "indirection must transparently re-resolve")
	assert.Equal(t, int32(2), atomic.LoadInt32(&ex.calls))
}

func TestFormats(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, nil)

	resp, body := get(t, srv.URL+"/api/formats?url=https://example.com/v")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Title     string `json:"title"`
		Qualities []struct {
			Quality  string `json:"quality"`
			Height   int    `json:"height"`
			HasAudio bool   `json:"has_audio"`
			M3U8URL  string `json:"m3u8_url"`
		} `json:"available_qualities"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))

	assert.Equal(t, "test video", out.Title)
	require.Len(t, out.Qualities, 4, "audio-only variants are not quality descriptors")

	heights := []int{}
	for _, q := range out.Qualities {
		heights = append(heights, q.Height)
	}
	assert.Equal(t, []int{1080, 720, 480, 360}, heights, "descriptors ordered highest first")
	assert.Contains(t, out.Qualities[1].M3U8URL, "quality=720")
}

func TestInfo(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, nil)

	resp, body := get(t, srv.URL+"/api/info?url=https://example.com/v")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		FormatsCount int    `json:"formats_count"`
		Formats      []struct {
			FormatID string `json:"format_id"`
		} `json:"formats"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))

	assert.Equal(t, "vid", out.ID)
	assert.Equal(t, 5, out.FormatsCount)
	assert.Len(t, out.Formats, 5, "info returns the complete variant set")
}

func TestStreamURL(t *testing.T) {
	expires := time.Now().Add(6 * time.Hour).Truncate(time.Second)
	ex := &stubExtractor{info: ladderInfo(expires)}
	srv := newTestServer(t, ex, nil)

	resp, body := get(t, srv.URL+"/api/stream-url?url=https://example.com/v&quality=480")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Quality   string     `json:"quality"`
		URL       string     `json:"url"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))

	assert.Equal(t, "480p", out.Quality)
	assert.Equal(t, "https://cdn.example.com/480", out.URL)
	require.NotNil(t, out.ExpiresAt)
	assert.True(t, out.ExpiresAt.Equal(expires))
}

func TestMasterPlaylist(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, nil)

	resp, body := get(t, srv.URL+"/api/master?url=https://example.com/v")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.apple.mpegurl", resp.Header.Get("Content-Type"))

	assert.True(t, strings.HasPrefix(body, "#EXTM3U\n"))
	assert.Equal(t, 4, strings.Count(body, "#EXT-X-STREAM-INF:"))
	assert.Contains(t, body, "RESOLUTION=1280x720")
	assert.NotContains(t, body, "cdn.example.com")
}

func TestLiveSourceRejected(t *testing.T) {
	ex := &stubExtractor{info: func(call int32) *extractor.VideoInfo {
		info := ladderInfo(time.Now().Add(6 * time.Hour))(call)
		info.IsLive = true
		info.LiveStatus = "is_live"
		return info
	}}
	srv := newTestServer(t, ex, nil)

	// a live broadcast must never come back as a finite VOD manifest
	for _, path := range []string{
		"/api/m3u8?url=https://example.com/live&quality=720",
		"/api/master?url=https://example.com/live",
	} {
		resp, body := get(t, srv.URL+path)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)

		var out errorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.Equal(t, "live_unsupported", out.Error, path)
		assert.NotContains(t, body, "#EXT-X-ENDLIST", path)
	}
}

func TestUpcomingSourceRejected(t *testing.T) {
	ex := &stubExtractor{info: func(call int32) *extractor.VideoInfo {
		info := ladderInfo(time.Now().Add(6 * time.Hour))(call)
		info.LiveStatus = "is_upcoming"
		return info
	}}
	srv := newTestServer(t, ex, nil)

	resp, body := get(t, srv.URL+"/api/m3u8?url=https://example.com/live")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "live_unsupported", out.Error)
}

func TestMasterPlaylistAudioOnly(t *testing.T) {
	ex := &stubExtractor{info: func(int32) *extractor.VideoInfo {
		return &extractor.VideoInfo{
			ID:       "vid",
			Title:    "podcast",
			Duration: 212,
			Variants: []extractor.MediaVariant{
				{FormatID: "e", Height: 0, VideoCodec: "none", AudioCodec: "mp4a", Bitrate: 128, Ext: "m4a", SignedURL: "https://cdn.example.com/audio"},
			},
		}
	}}
	srv := newTestServer(t, ex, nil)

	// a master playlist with zero streams is not a playlist
	resp, body := get(t, srv.URL+"/api/master?url=https://example.com/v")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "no_formats", out.Error)
	assert.NotContains(t, body, "#EXTM3U")
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		path       string
		wantStatus int
		wantKind   string
	}{
		{
			name:       "restricted source",
			err:        &extractor.Error{Kind: extractor.KindRestricted, Msg: "members only"},
			path:       "/api/m3u8?url=https://example.com/v",
			wantStatus: http.StatusForbidden,
			wantKind:   "access_restricted",
		},
		{
			name:       "malformed url",
			err:        &extractor.Error{Kind: extractor.KindMalformed, Msg: "unsupported or invalid source URL"},
			path:       "/api/m3u8?url=https://example.com/v",
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_url",
		},
		{
			name:       "upstream unreachable",
			err:        &extractor.Error{Kind: extractor.KindUnreachable, Msg: "network down"},
			path:       "/api/info?url=https://example.com/v",
			wantStatus: http.StatusBadGateway,
			wantKind:   "upstream_unreachable",
		},
		{
			name:       "video gone",
			err:        &extractor.Error{Kind: extractor.KindNotFound, Msg: "video unavailable"},
			path:       "/api/formats?url=https://example.com/v",
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &stubExtractor{err: tt.err}
			srv := newTestServer(t, ex, nil)

			resp, body := get(t, srv.URL+tt.path)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var out errorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &out))
			assert.Equal(t, tt.wantKind, out.Error)
		})
	}
}

func TestInvalidQualityToken(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, nil)

	resp, body := get(t, srv.URL+"/api/m3u8?url=https://example.com/v&quality=ultra")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "invalid_quality", out.Error)
}

func TestMissingURLParameter(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, nil)

	for _, path := range []string{"/api/m3u8", "/api/master", "/api/formats", "/api/stream", "/api/stream-url", "/api/info"} {
		resp, _ := get(t, srv.URL+path)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&ex.calls))
}

func TestHealthUngated(t *testing.T) {
	ex := &stubExtractor{info: ladderInfo(time.Now().Add(6 * time.Hour))}
	srv := newTestServer(t, ex, &config.Server{APIKey: "secret", CookiesFile: "/data/cookies.txt"})

	resp, body := get(t, srv.URL+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out healthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, "2026.01.01", out.ExtractorVersion)
	assert.True(t, out.CookiesConfigured)
}
