package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"media-relay/internal/database"
	"media-relay/internal/delivery"
	"media-relay/internal/pipeline"
	"media-relay/internal/retrieval"
	"media-relay/internal/startup"
	"media-relay/internal/thumbnail"
	"media-relay/internal/transcoder"
	"media-relay/internal/workers"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const (
	// Default timeout for journal queries
	defaultTimeout = 30 * time.Second
	// minTokenLength is the shortest API token hash-token accepts
	minTokenLength = 16

	defaultRunsShown = 20
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	var ok bool
	switch command := os.Args[1]; command {
	case "run":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, "Usage: relayctl run <url>")
			os.Exit(1)
		}
		ok = runOnce(ctx, os.Args[2])
	case "hash-token":
		ok = hashToken(os.Stdout, readSecret)
	case "runs":
		ok = listRuns(ctx, os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		ok = true
	default:
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitized) //nolint:gosec // G705 - only [a-zA-Z0-9_-] pass sanitizeCommand
		printUsage(os.Stderr)
	}
	if !ok {
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// Any character that is not alphanumeric, a hyphen, or an underscore becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Media Relay Control")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: relayctl <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run <url>   - Process one link into OUTBOX_DIR")
	fmt.Fprintln(w, "  hash-token  - Read an API token and print its bcrypt hash for API_TOKEN_HASH")
	fmt.Fprintln(w, "  runs        - Show the most recent journal entries")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  WORK_DIR      - Scratch directory (default: a temporary directory)")
	fmt.Fprintln(w, "  OUTBOX_DIR    - Where run delivers (default: ./outbox)")
	fmt.Fprintln(w, "  DATABASE_DIR  - Journal directory for runs (default: /database)")
	fmt.Fprintln(w, "  Size, ladder and tool settings are shared with the server.")
}

// localConfig reads the server configuration and points it at local
// directories unless they were set explicitly.
func localConfig() (*startup.Config, error) {
	config, err := startup.FromEnv()
	if err != nil {
		return nil, err
	}
	config.DeliveryMode = startup.DeliveryDirectory
	if os.Getenv("WORK_DIR") == "" {
		config.WorkDir = filepath.Join(os.TempDir(), "relayctl")
	}
	if os.Getenv("OUTBOX_DIR") == "" {
		config.OutboxDir = "outbox"
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return config, nil
}

func runOnce(ctx context.Context, url string) bool {
	config, err := localConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	ytdlp, err := retrieval.NewYtDlp(config.YtDlpPath, config.YtDlpArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid YTDLP_ARGS: %v\n", err)
		return false
	}
	ffmpeg := transcoder.NewFFmpeg(config.FFmpegPath, transcoder.DefaultProfile())
	defer ffmpeg.Cleanup()

	cfg := config.PipelineConfig()
	deps, err := pipeline.StandardDeps(cfg, ytdlp, ffmpeg, workers.NewPool(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	sink, err := delivery.NewDirectorySink(config.OutboxDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	deps.Sink = sink
	deps.Poster = thumbnail.NewGenerator(config.FFmpegPath, nil)

	orch, err := pipeline.New(cfg, config.WorkDir, deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	out := orch.Run(ctx, pipeline.NewRequest(url, os.Getenv("USER")))
	printOutcome(os.Stdout, out, sink.Dir())
	return out.Delivered
}

func printOutcome(w io.Writer, out pipeline.Outcome, outbox string) {
	fmt.Fprintf(w, "Request:  %s\n", out.RequestID)
	if out.Title != "" {
		fmt.Fprintf(w, "Title:    %s\n", out.Title)
	}
	for _, a := range out.Attempts {
		status := "too large"
		if a.Succeeded {
			status = "fits"
		}
		fmt.Fprintf(w, "  %-10s %s  %s\n", a.Label(), startup.FormatBytes(a.SizeBytes), status)
	}
	if out.Delivered {
		fmt.Fprintf(w, "Delivered %s to %s in %v\n", startup.FormatBytes(out.FinalSize), outbox, out.Duration().Round(time.Millisecond))
		return
	}
	fmt.Fprintf(w, "Not delivered: %s\n", out.Label())
	if out.Detail != "" {
		fmt.Fprintf(w, "  %s\n", out.Detail)
	}
}

// secretReader reads one secret after showing prompt.
type secretReader func(prompt string) ([]byte, error)

func readSecret(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	secret, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	return secret, err
}

func hashToken(w io.Writer, read secretReader) bool {
	token, err := read("API Token: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		return false
	}
	confirm, err := read("Confirm Token: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		return false
	}

	hash, err := tokenHash(token, confirm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	fmt.Fprintln(w, hash)
	return true
}

func tokenHash(token, confirm []byte) (string, error) {
	if !bytes.Equal(token, confirm) {
		return "", errors.New("tokens do not match")
	}
	if len(bytes.TrimSpace(token)) < minTokenLength {
		return "", fmt.Errorf("token must be at least %d characters", minTokenLength)
	}
	hash, err := bcrypt.GenerateFromPassword(token, bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

func listRuns(ctx context.Context, w io.Writer) bool {
	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = "/database"
	}
	dbPath := filepath.Join(databaseDir, database.FileName)
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: no journal at %s (set DATABASE_DIR)\n", dbPath)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open journal: %v\n", err)
		return false
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close journal: %v\n", err)
		}
	}()

	runs, err := db.ListRuns(ctx, database.ListOptions{Limit: defaultRunsShown})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	printRuns(w, runs)
	return true
}

func printRuns(w io.Writer, runs []database.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tOUTCOME\tSIZE\tATTEMPTS\tURL")
	for _, r := range runs {
		size := "-"
		if r.FinalSize > 0 {
			size = startup.FormatBytes(r.FinalSize)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"), r.Outcome, size, len(r.Attempts), r.SourceURL)
	}
	_ = tw.Flush()
}
