package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ytbridge/internal/utils"
)

// YtDlpCtx drives the yt-dlp binary. One extraction call spawns one process
// with JSON output on stdout, the same way media metadata is usually probed.
type YtDlpCtx struct {
	logger      zerolog.Logger
	binary      string
	cookiesFile string
}

func NewYtDlp(binary string, cookiesFile string) *YtDlpCtx {
	return &YtDlpCtx{
		logger:      log.With().Str("module", "extractor").Logger(),
		binary:      binary,
		cookiesFile: cookiesFile,
	}
}

func (y *YtDlpCtx) Extract(ctx context.Context, sourceURL string) (*VideoInfo, error) {
	if err := validateSourceURL(sourceURL); err != nil {
		return nil, err
	}

	args := []string{
		"-J", // single-line JSON info dict
		"--no-warnings",
		"--no-playlist",
	}

	if y.cookiesFile != "" {
		args = append(args, "--cookies", y.cookiesFile)
	}

	args = append(args, sourceURL)

	cmd := exec.CommandContext(ctx, y.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.MultiWriter(&stderr, utils.LogWriter(y.logger))

	start := time.Now()
	err := cmd.Run()
	y.logger.Debug().
		Str("url", sourceURL).
		Dur("elapsed", time.Since(start)).
		Msg("extraction finished")

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(stderr.String(), err)
	}

	out := struct {
		ID          string  `json:"id"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Duration    float64 `json:"duration"`
		Uploader    string  `json:"uploader"`
		UploadDate  string  `json:"upload_date"`
		Thumbnail   string  `json:"thumbnail"`
		ViewCount   int64   `json:"view_count"`
		IsLive      bool    `json:"is_live"`
		LiveStatus  string  `json:"live_status"`
		Formats     []struct {
			FormatID string  `json:"format_id"`
			Ext      string  `json:"ext"`
			Height   int     `json:"height"`
			Width    int     `json:"width"`
			FPS      float64 `json:"fps"`
			VCodec   string  `json:"vcodec"`
			ACodec   string  `json:"acodec"`
			TBR      float64 `json:"tbr"`
			FileSize int64   `json:"filesize"`
			Protocol string  `json:"protocol"`
			URL      string  `json:"url"`
		} `json:"formats"`
	}{}

	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, classify("", err)
	}

	info := &VideoInfo{
		ID:          out.ID,
		Title:       out.Title,
		Description: out.Description,
		Duration:    out.Duration,
		Uploader:    out.Uploader,
		UploadDate:  out.UploadDate,
		Thumbnail:   out.Thumbnail,
		ViewCount:   out.ViewCount,
		IsLive:      out.IsLive,
		LiveStatus:  out.LiveStatus,
	}

	for _, f := range out.Formats {
		// variants without an access URL are useless downstream
		if f.URL == "" {
			continue
		}

		info.Variants = append(info.Variants, MediaVariant{
			FormatID:   f.FormatID,
			Ext:        f.Ext,
			Height:     f.Height,
			Width:      f.Width,
			FPS:        f.FPS,
			VideoCodec: f.VCodec,
			AudioCodec: f.ACodec,
			Bitrate:    f.TBR,
			FileSize:   f.FileSize,
			Protocol:   f.Protocol,
			SignedURL:  f.URL,
			ExpiresAt:  SignedURLExpiry(f.URL),
		})
	}

	return info, nil
}

func (y *YtDlpCtx) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, y.binary, "--version")

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", err
	}

	return strings.TrimSpace(stdout.String()), nil
}

func validateSourceURL(sourceURL string) error {
	u, err := url.ParseRequestURI(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &Error{
			Kind: KindMalformed,
			Msg:  "unsupported or invalid source URL",
		}
	}
	return nil
}

// SignedURLExpiry reads the unix `expire` query parameter that signed media
// URLs carry. Zero time means the expiry is unknown.
func SignedURLExpiry(signedURL string) time.Time {
	u, err := url.Parse(signedURL)
	if err != nil {
		return time.Time{}
	}

	expire := u.Query().Get("expire")
	if expire == "" {
		return time.Time{}
	}

	unix, err := strconv.ParseInt(expire, 10, 64)
	if err != nil {
		return time.Time{}
	}

	return time.Unix(unix, 0)
}
