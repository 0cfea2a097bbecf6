package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os/exec"
	"time"

	"media-relay/internal/artifact"
	"media-relay/internal/logging"
	"media-relay/internal/metrics"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension is the longest edge of a poster.
	MaxDimension = 640
	// JPEGQuality is the poster encoding quality.
	JPEGQuality = 80
	// maxRemoteBytes caps a downloaded thumbnail.
	maxRemoteBytes = 10 << 20
)

// ErrNoImage is returned when neither source produced a decodable image.
var ErrNoImage = errors.New("no poster image")

// Generator builds posters.
type Generator struct {
	ffmpegPath string
	client     *http.Client
}

// NewGenerator creates a generator. A nil client uses one with a short
// timeout; an empty ffmpegPath uses "ffmpeg" from PATH.
func NewGenerator(ffmpegPath string, client *http.Client) *Generator {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Generator{ffmpegPath: ffmpegPath, client: client}
}

// Poster writes a poster into the scope's FallbackThumbnail artifact. The
// remote thumbnail is tried first; the video frame is used when remoteURL is
// empty or unusable.
func (g *Generator) Poster(ctx context.Context, remoteURL string, video *artifact.Artifact, scope *artifact.Scope) (*artifact.Artifact, error) {
	log := logging.ForRequest(scope.RequestID())

	var img image.Image
	source := "remote"
	if remoteURL != "" {
		var err error
		img, err = g.fetchRemote(ctx, remoteURL)
		if err != nil {
			metrics.PosterGenerationsTotal.WithLabelValues(source, "error").Inc()
			log.Debug("Remote thumbnail unusable (%s): %v", remoteURL, err)
		}
	}

	if img == nil && video != nil {
		source = "frame"
		var err error
		img, err = g.extractFrame(ctx, video.Path)
		if err != nil {
			metrics.PosterGenerationsTotal.WithLabelValues(source, "error").Inc()
			log.Debug("Frame extraction failed for %s: %v", video.Path, err)
		}
	}

	if img == nil {
		return nil, ErrNoImage
	}

	out, err := scope.Acquire(artifact.KindFallbackThumbnail)
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	if err := imaging.Save(thumb, out.Path, imaging.JPEGQuality(JPEGQuality)); err != nil {
		metrics.PosterGenerationsTotal.WithLabelValues(source, "error").Inc()
		_ = scope.Discard(out)
		return nil, fmt.Errorf("failed to write poster: %w", err)
	}

	metrics.PosterGenerationsTotal.WithLabelValues(source, "success").Inc()
	b := thumb.Bounds()
	log.Debug("Poster from %s: %dx%d at %s", source, b.Dx(), b.Dy(), out.Path)
	return out, nil
}

func (g *Generator) fetchRemote(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxRemoteBytes {
		return nil, fmt.Errorf("thumbnail larger than %d bytes", maxRemoteBytes)
	}

	format := detectFormat(data)
	if format == "unknown" {
		return nil, fmt.Errorf("unrecognized image data (%s)", resp.Header.Get("Content-Type"))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s thumbnail: %w", format, err)
	}
	return img, nil
}

// extractFrame grabs a frame one second in, or the first frame for clips
// shorter than that.
func (g *Generator) extractFrame(ctx context.Context, videoPath string) (image.Image, error) {
	data, err := g.runFFmpeg(ctx, "-ss", "00:00:01", "-i", videoPath)
	if err != nil || len(data) == 0 {
		logging.Debug("Frame at 1s unavailable for %s: %v, using first frame", videoPath, err)
		data, err = g.runFFmpeg(ctx, "-i", videoPath)
		if err != nil {
			return nil, err
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", videoPath)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

func (g *Generator) runFFmpeg(ctx context.Context, input ...string) ([]byte, error) {
	args := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error"}, input...)
	args = append(args, "-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-")

	cmd := exec.CommandContext(ctx, g.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// detectFormat identifies an image by its magic bytes.
func detectFormat(header []byte) string {
	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return "jpeg"
	case len(header) >= 8 && header[0] == 0x89 && header[1] == 0x50 && header[2] == 0x4E && header[3] == 0x47:
		return "png"
	case len(header) >= 4 && header[0] == 0x47 && header[1] == 0x49 && header[2] == 0x46 && header[3] == 0x38:
		return "gif"
	case len(header) >= 12 && header[0] == 0x52 && header[1] == 0x49 && header[2] == 0x46 && header[3] == 0x46 &&
		header[8] == 0x57 && header[9] == 0x45 && header[10] == 0x42 && header[11] == 0x50:
		return "webp"
	}
	return "unknown"
}
