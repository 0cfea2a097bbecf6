package delivery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"media-relay/internal/logging"
)

// DirectorySink copies delivered files into an outbox directory. The outbox
// must not be the pipeline's working directory.
type DirectorySink struct {
	dir string
}

// NewDirectorySink creates the outbox if needed.
func NewDirectorySink(dir string) (*DirectorySink, error) {
	if dir == "" {
		return nil, fmt.Errorf("outbox directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create outbox %s: %w", dir, err)
	}
	return &DirectorySink{dir: dir}, nil
}

func (s *DirectorySink) Name() string { return "directory" }

// WantsPreview reports true; the poster is stored next to the video.
func (s *DirectorySink) WantsPreview() bool { return true }

// Dir returns the outbox directory.
func (s *DirectorySink) Dir() string { return s.dir }

// Deliver copies the artifact (and poster, when present) into the outbox and
// writes the announcement to a .txt file beside it.
func (s *DirectorySink) Deliver(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := FileName(item)
	dest := filepath.Join(s.dir, name)
	if err := copyFile(item.Path, dest); err != nil {
		return fmt.Errorf("failed to deliver %s: %w", item.Path, err)
	}
	logging.Info("Delivered %s to %s", item.Path, dest)

	base := strings.TrimSuffix(dest, filepath.Ext(dest))
	if item.PosterPath != "" {
		if err := copyFile(item.PosterPath, base+filepath.Ext(item.PosterPath)); err != nil {
			logging.Warn("Failed to store poster for %s: %v", dest, err)
		}
	}
	if item.Announcement != "" {
		if err := os.WriteFile(base+".txt", []byte(item.Announcement+"\n"), 0o644); err != nil {
			logging.Warn("Failed to store announcement for %s: %v", dest, err)
		}
	}
	return nil
}

// copyFile writes src to a temporary file in dest's directory and renames it
// into place, so readers of the outbox never see a partial file.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".delivery-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
