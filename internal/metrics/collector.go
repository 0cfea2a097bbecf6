package metrics

import (
	"os"
	"path/filepath"
	"time"

	"media-relay/internal/logging"
)

// PoolStatsProvider exposes the occupancy of the encoder worker pool.
type PoolStatsProvider interface {
	Size() int
	InFlight() int
	Queued() int
}

// WorkDirStats summarizes the working directory contents.
type WorkDirStats struct {
	Files int
	Bytes int64
}

// Collector periodically samples the worker pool and the working directory.
// Leftover files in the working directory after runs complete indicate an
// artifact leak, so the file count is the series to alert on.
type Collector struct {
	pool     PoolStatsProvider
	workDir  string
	interval time.Duration
	stopChan chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(pool PoolStatsProvider, workDir string, interval time.Duration) *Collector {
	return &Collector{
		pool:     pool,
		workDir:  workDir,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.pool != nil {
		WorkerPoolSize.Set(float64(c.pool.Size()))
		WorkerPoolInFlight.Set(float64(c.pool.InFlight()))
		WorkerPoolQueued.Set(float64(c.pool.Queued()))
	}

	if c.workDir == "" {
		return
	}

	stats, err := ScanWorkDir(c.workDir)
	if err != nil {
		logging.Warn("Metrics: failed to scan work dir %s: %v", c.workDir, err)
		return
	}
	WorkDirFiles.Set(float64(stats.Files))
	WorkDirBytes.Set(float64(stats.Bytes))

	logging.Debug("Metrics collected: work dir files=%d, bytes=%d", stats.Files, stats.Bytes)
}

// ScanWorkDir counts the regular files directly inside dir and their total size.
func ScanWorkDir(dir string) (WorkDirStats, error) {
	var stats WorkDirStats

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logging.Debug("Metrics: skipping %s: %v", filepath.Join(dir, entry.Name()), err)
			continue
		}
		stats.Files++
		stats.Bytes += info.Size()
	}

	return stats, nil
}
