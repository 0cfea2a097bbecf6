package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"media-relay/internal/filesystem"
	"media-relay/internal/logging"
)

// ErrEncoderFailed is returned when ffmpeg exits non-zero or leaves no output.
var ErrEncoderFailed = errors.New("encoder failed")

// Job is one encoder invocation.
type Job struct {
	Input   string
	Output  string
	Quality int
	// Scale is an ffmpeg scale expression such as "-2:240". Empty keeps the
	// source resolution.
	Scale string
}

// Encoder is the encoding collaborator.
type Encoder interface {
	Encode(ctx context.Context, job Job) error
}

// Profile is the fixed codec configuration shared by every invocation.
type Profile struct {
	VideoCodec string
	AudioCodec string
	// SpeedArgs select the encoder speed/quality trade-off.
	SpeedArgs []string
}

// DefaultProfile is VP9 video with Opus audio in constant-quality mode.
func DefaultProfile() Profile {
	return Profile{
		VideoCodec: "libvpx-vp9",
		AudioCodec: "libopus",
		SpeedArgs:  []string{"-deadline", "good", "-cpu-used", "4"},
	}
}

// FFmpeg runs the ffmpeg binary and tracks live processes so they can be
// killed on shutdown.
type FFmpeg struct {
	binary  string
	profile Profile

	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// NewFFmpeg creates an encoder using binary (default "ffmpeg").
func NewFFmpeg(binary string, profile Profile) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		binary:    binary,
		profile:   profile,
		processes: make(map[string]*exec.Cmd),
	}
}

// BuildArgs returns the ffmpeg argument list for a job. Only the quality
// value and the optional scale filter differ between calls.
func (f *FFmpeg) BuildArgs(job Job) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", job.Input,
	}

	if job.Scale != "" {
		args = append(args, "-vf", "scale="+job.Scale)
	}

	args = append(args, f.profile.SpeedArgs...)
	args = append(args,
		"-c:v", f.profile.VideoCodec,
		"-crf", strconv.Itoa(job.Quality),
		"-b:v", "0",
		"-c:a", f.profile.AudioCodec,
		job.Output,
	)
	return args
}

// Encode implements Encoder. Success requires exit status 0 and an output
// file on disk.
func (f *FFmpeg) Encode(ctx context.Context, job Job) error {
	cmd := exec.CommandContext(ctx, f.binary, f.BuildArgs(job)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.processMu.Lock()
	f.processes[job.Output] = cmd
	f.processMu.Unlock()

	defer func() {
		f.processMu.Lock()
		delete(f.processes, job.Output)
		f.processMu.Unlock()
	}()

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrEncoderFailed, ctx.Err())
		}
		logging.Error("FFmpeg stderr: %s", strings.TrimSpace(stderr.String()))
		return fmt.Errorf("%w: %w", ErrEncoderFailed, err)
	}

	if !filesystem.Exists(job.Output) {
		return fmt.Errorf("%w: no output at %s", ErrEncoderFailed, job.Output)
	}
	return nil
}

// Active returns the number of running ffmpeg processes.
func (f *FFmpeg) Active() int {
	f.processMu.Lock()
	defer f.processMu.Unlock()
	return len(f.processes)
}

// Cleanup stops all active encoding processes.
func (f *FFmpeg) Cleanup() {
	f.processMu.Lock()
	defer f.processMu.Unlock()

	for path, cmd := range f.processes {
		if cmd.Process != nil {
			logging.Info("Killing encoding process for: %s", path)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill encoding process for %s: %v", path, err)
			}
		}
	}
}

// Version returns the first line of `ffmpeg -version`.
func (f *FFmpeg) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, f.binary, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get ffmpeg version: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}
