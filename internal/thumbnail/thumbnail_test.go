package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"media-relay/internal/artifact"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newScope(t *testing.T, id string) *artifact.Scope {
	t.Helper()
	scope, err := artifact.NewScope(t.TempDir(), id)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = scope.Release() })
	return scope
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if format != "jpeg" {
		t.Errorf("poster format = %s, want jpeg", format)
	}
	return img
}

func TestPosterFromRemote(t *testing.T) {
	data := pngBytes(t, 1280, 720)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	scope := newScope(t, "poster1")
	g := NewGenerator("/nonexistent/ffmpeg", srv.Client())

	out, err := g.Poster(context.Background(), srv.URL+"/maxres.png", nil, scope)
	if err != nil {
		t.Fatalf("Poster() error = %v", err)
	}
	if out.Kind != artifact.KindFallbackThumbnail {
		t.Errorf("Kind = %v, want thumbnail", out.Kind)
	}
	if filepath.Base(out.Path) != "thumbnail_poster1.jpg" {
		t.Errorf("Path = %s", out.Path)
	}

	b := decodeFile(t, out.Path).Bounds()
	if b.Dx() != MaxDimension || b.Dy() != 360 {
		t.Errorf("poster size = %dx%d, want %dx360", b.Dx(), b.Dy(), MaxDimension)
	}
}

func TestPosterRemoteNotImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer srv.Close()

	scope := newScope(t, "poster2")
	g := NewGenerator("/nonexistent/ffmpeg", srv.Client())

	_, err := g.Poster(context.Background(), srv.URL, nil, scope)
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("Poster() error = %v, want ErrNoImage", err)
	}
	if len(scope.Artifacts()) != 0 {
		t.Error("no artifact should be registered when no image was produced")
	}
}

func TestPosterFallsBackToFrame(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}
	dir := t.TempDir()
	frame := filepath.Join(dir, "frame.png")
	if err := os.WriteFile(frame, pngBytes(t, 320, 240), 0o644); err != nil {
		t.Fatal(err)
	}
	ffmpeg := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\ncat "+frame+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	scope := newScope(t, "poster3")
	video := &artifact.Artifact{Path: filepath.Join(dir, "compressed_poster3.webm"), Kind: artifact.KindCompressed}

	out, err := NewGenerator(ffmpeg, srv.Client()).Poster(context.Background(), srv.URL, video, scope)
	if err != nil {
		t.Fatalf("Poster() error = %v", err)
	}
	b := decodeFile(t, out.Path).Bounds()
	if b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("poster size = %dx%d, small frames must not be upscaled", b.Dx(), b.Dy())
	}
}

func TestPosterNothingAvailable(t *testing.T) {
	scope := newScope(t, "poster4")
	g := NewGenerator("/nonexistent/ffmpeg", nil)
	video := &artifact.Artifact{Path: "/nonexistent/video.webm"}

	if _, err := g.Poster(context.Background(), "", video, scope); !errors.Is(err, ErrNoImage) {
		t.Fatalf("Poster() error = %v, want ErrNoImage", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "png"},
		{"gif", []byte("GIF89a"), "gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
		{"html", []byte("<html>"), "unknown"},
		{"empty", nil, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectFormat(tt.data); got != tt.want {
				t.Errorf("detectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}
