package transcoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func TestBuildArgs(t *testing.T) {
	f := NewFFmpeg("", DefaultProfile())

	got := f.BuildArgs(Job{Input: "/work/in.mp4", Output: "/work/out.webm", Quality: 35})
	want := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error", "-y",
		"-i", "/work/in.mp4",
		"-deadline", "good", "-cpu-used", "4",
		"-c:v", "libvpx-vp9", "-crf", "35", "-b:v", "0", "-c:a", "libopus",
		"/work/out.webm",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs() = %q\nwant %q", got, want)
	}
}

func TestBuildArgsFallbackScale(t *testing.T) {
	f := NewFFmpeg("ffmpeg", DefaultProfile())

	args := f.BuildArgs(Job{Input: "in", Output: "out", Quality: 45, Scale: DefaultFallbackScale})

	found := false
	for i, a := range args {
		if a == "-vf" && i+1 < len(args) && args[i+1] == "scale=-2:240" {
			found = true
		}
	}
	if !found {
		t.Errorf("fallback args missing scale filter: %q", args)
	}
}

func TestBuildArgsOnlyQualityVaries(t *testing.T) {
	f := NewFFmpeg("ffmpeg", DefaultProfile())

	a := f.BuildArgs(Job{Input: "in", Output: "out", Quality: 30})
	b := f.BuildArgs(Job{Input: "in", Output: "out", Quality: 45})
	if len(a) != len(b) {
		t.Fatalf("argument count differs: %d vs %d", len(a), len(b))
	}
	diffs := 0
	for i := range a {
		if a[i] != b[i] {
			diffs++
		}
	}
	if diffs != 1 {
		t.Errorf("expected exactly one differing argument, got %d", diffs)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEncodeWithFakeBinary(t *testing.T) {
	// Writes 10 bytes to the last argument (the output path).
	bin := writeScript(t, `for last; do :; done; printf '0123456789' > "$last"`)
	f := NewFFmpeg(bin, DefaultProfile())

	out := filepath.Join(t.TempDir(), "out.webm")
	if err := f.Encode(context.Background(), Job{Input: "in", Output: out, Quality: 30}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() != 10 {
		t.Errorf("output = %v, %v", info, err)
	}
	if f.Active() != 0 {
		t.Errorf("Active() = %d after completion, want 0", f.Active())
	}
}

func TestEncodeFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"non-zero exit", "echo 'Unknown encoder' >&2; exit 1"},
		{"zero exit without output", "exit 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFFmpeg(writeScript(t, tt.body), DefaultProfile())
			out := filepath.Join(t.TempDir(), "out.webm")

			err := f.Encode(context.Background(), Job{Input: "in", Output: out, Quality: 30})
			if !errors.Is(err, ErrEncoderFailed) {
				t.Errorf("Encode() error = %v, want ErrEncoderFailed", err)
			}
		})
	}
}

func TestCleanupWithNoProcesses(t *testing.T) {
	f := NewFFmpeg("ffmpeg", DefaultProfile())
	f.Cleanup()
	if f.Active() != 0 {
		t.Errorf("Active() = %d, want 0", f.Active())
	}
}
