package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"

	"media-relay/internal/logging"
)

// DefaultFormat prefers a 360p-or-lower MP4 and falls back to any MP4.
const DefaultFormat = "mp4[height<=360]/mp4"

// ytdlpInfo is the subset of yt-dlp's info JSON the relay reads.
type ytdlpInfo struct {
	Title          string  `json:"title"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
	Thumbnail      string  `json:"thumbnail"`
	Duration       float64 `json:"duration"`
	WebpageURL     string  `json:"webpage_url"`
}

// YtDlp runs the yt-dlp binary.
type YtDlp struct {
	binary    string
	extraArgs []string
}

// NewYtDlp creates a client for the given binary. extraArgs is a shell-quoted
// string of additional flags (for example a cookies file or proxy) appended to
// every invocation.
func NewYtDlp(binary, extraArgs string) (*YtDlp, error) {
	if binary == "" {
		binary = "yt-dlp"
	}
	args, err := shellquote.Split(extraArgs)
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp extra args: %w", err)
	}
	return &YtDlp{binary: binary, extraArgs: args}, nil
}

// commonArgs mirrors the quiet, single-video, certificate-lenient options the
// relay has always used.
func (y *YtDlp) commonArgs(format string) []string {
	args := []string{
		"--quiet",
		"--no-warnings",
		"--no-playlist",
		"--no-check-certificates",
		"-f", format,
	}
	return append(args, y.extraArgs...)
}

// ProbeArgs returns the argument list for a metadata-only probe.
func (y *YtDlp) ProbeArgs(url, format string) []string {
	args := append(y.commonArgs(format), "--dump-single-json", "--skip-download")
	return append(args, "--", url)
}

// DownloadArgs returns the argument list for downloading one rendition.
func (y *YtDlp) DownloadArgs(url, format, dest string) []string {
	args := append(y.commonArgs(format), "--force-overwrites", "--no-mtime", "-o", dest)
	return append(args, "--", url)
}

// Probe implements Client.
func (y *YtDlp) Probe(ctx context.Context, url, format string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, y.binary, y.ProbeArgs(url, format)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp probe error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseInfo(stdout.Bytes())
}

// Download implements Client.
func (y *YtDlp) Download(ctx context.Context, url, format, dest string) error {
	cmd := exec.CommandContext(ctx, y.binary, y.DownloadArgs(url, format, dest)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp download error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}
	logging.Debug("yt-dlp downloaded %s to %s", url, dest)
	return nil
}

// Version returns the first line of `yt-dlp --version`.
func (y *YtDlp) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, y.binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get yt-dlp version: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// parseInfo decodes yt-dlp's info JSON. An empty document or "null" means the
// extractor gave up, which is reported as ErrNoMetadata.
func parseInfo(data []byte) (*Metadata, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoMetadata
	}

	var info ytdlpInfo
	if err := json.Unmarshal(trimmed, &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp info: %w", err)
	}

	size := info.Filesize
	if size <= 0 {
		size = int64(info.FilesizeApprox)
	}
	if size < 0 {
		size = 0
	}

	return &Metadata{
		Title:        info.Title,
		DeclaredSize: size,
		ThumbnailURL: info.Thumbnail,
		Duration:     info.Duration,
		WebpageURL:   info.WebpageURL,
	}, nil
}
