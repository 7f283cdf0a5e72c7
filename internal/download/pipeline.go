// Package download turns classified document references into
// deduplicated, collision-resolved file-fetch jobs executed with bounded
// concurrency and a durable completion ledger.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/sync/errgroup"

	"github.com/ExploracuriousAlex/yapytr/internal/timeline"
)

// DefaultWorkers is the default worker-pool width.
const DefaultWorkers = 8

// Doer executes HTTP requests; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Job is one pending document fetch. The dedup key is the source URL with
// query parameters stripped.
type Job struct {
	URL      string
	DedupKey string
	// Path is the clean destination; PathWithID includes the document id
	// and is used when two queued jobs want the same clean path.
	Path       string
	PathWithID string
}

// Stats summarizes a pipeline run. Every queued job ends in exactly one
// of Completed, Failed, or Unresolvable.
type Stats struct {
	Completed    int
	Failed       int
	Unresolvable int
}

// Options configures the pipeline.
type Options struct {
	OutputPath     string
	FilenameFormat string            // DefaultFilenameFormat if empty
	Workers        int               // DefaultWorkers if zero
	Headers        map[string]string // session headers attached to fetches
}

// Pipeline accumulates download jobs during pagination and executes them
// with a bounded worker pool. Enqueue runs on the paginator's
// single-threaded schedule; Run is where concurrency starts.
type Pipeline struct {
	logger  *slog.Logger
	client  Doer
	history *History
	opts    Options

	queue []Job
}

// NewPipeline creates a pipeline writing under opts.OutputPath and
// recording completions in history.
func NewPipeline(logger *slog.Logger, client Doer, history *History, opts Options) *Pipeline {
	if opts.FilenameFormat == "" {
		opts.FilenameFormat = DefaultFilenameFormat
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Pipeline{logger: logger, client: client, history: history, opts: opts}
}

// Enqueue derives the destination paths for a document and inserts a
// fetch job unless its dedup key is already in the ledger or in the
// current queue. It implements the paginator's document sink.
func (p *Pipeline) Enqueue(doc timeline.Document, titleText, subtitleText, subfolder string) {
	docURL := doc.Action.PayloadString()
	if docURL == "" {
		p.logger.Debug("document without source URL", "id", doc.ID)
		return
	}
	dedupKey := strings.SplitN(docURL, "?", 2)[0]

	if p.history.Contains(dedupKey) {
		p.logger.Debug("source URL already in history", "url", dedupKey)
		return
	}
	for _, job := range p.queue {
		if job.DedupKey == dedupKey {
			p.logger.Debug("source URL already in queue", "url", dedupKey)
			return
		}
	}

	clean, withID := derivePaths(
		p.opts.OutputPath, p.opts.FilenameFormat,
		doc.ID, doc.Detail, doc.Title, titleText, subtitleText, subfolder)

	p.queue = append(p.queue, Job{
		URL:        docURL,
		DedupKey:   dedupKey,
		Path:       clean,
		PathWithID: withID,
	})
	p.logger.Debug("queued document", "url", dedupKey, "path", clean)
}

// QueueLen returns the number of pending jobs.
func (p *Pipeline) QueueLen() int {
	return len(p.queue)
}

// Run resolves destination collisions and drains the queue with the
// worker pool. Per-fetch failures are logged and counted, never fatal:
// every job reaches a terminal state and the run ends when all jobs are
// terminal. An empty queue reports nothing to do without touching the
// ledger.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	if len(p.queue) == 0 {
		p.logger.Info("nothing to download")
		return stats, nil
	}

	jobs := make([]Job, 0, len(p.queue))
	for _, job := range p.queue {
		path, ok := p.resolvePath(job)
		if !ok {
			p.logger.Error("multiple downloads with the same destination", "path", job.PathWithID)
			stats.Unresolvable++
			continue
		}
		job.Path = path
		jobs = append(jobs, job)
	}

	p.logger.Info("waiting for downloads to complete", "jobs", len(jobs), "workers", p.opts.Workers)

	results := make(chan error, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, job := range jobs {
		g.Go(func() error {
			results <- p.fetch(gCtx, job)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	for err := range results {
		if err != nil {
			p.logger.Error("download failed", "error", err)
			stats.Failed++
		} else {
			stats.Completed++
		}
	}

	p.logger.Info("downloads finished",
		"completed", stats.Completed,
		"failed", stats.Failed,
		"unresolvable", stats.Unresolvable)
	return stats, nil
}

// resolvePath picks the destination for a job: the clean path when it is
// unique within the queue, the id-suffixed path when that one is, and
// nothing when even the id-suffixed path collides.
func (p *Pipeline) resolvePath(job Job) (string, bool) {
	cleanCount, withIDCount := 0, 0
	for _, other := range p.queue {
		if other.Path == job.Path {
			cleanCount++
		}
		if other.PathWithID == job.PathWithID {
			withIDCount++
		}
	}
	switch {
	case cleanCount == 1:
		return job.Path, true
	case withIDCount == 1:
		return job.PathWithID, true
	default:
		return "", false
	}
}

// fetch downloads one job to its resolved destination and appends its
// dedup key to the ledger immediately after the file write succeeds.
// Network-class failures are retried with bounded exponential backoff.
func (p *Pipeline) fetch(ctx context.Context, job Job) error {
	var body []byte

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			for key, value := range p.opts.Headers {
				req.Header.Set(key, value)
			}

			resp, err := p.client.Do(req)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", job.DedupKey, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return fmt.Errorf("fetch %s: HTTP %d", job.DedupKey, resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("fetch %s: HTTP %d", job.DedupKey, resp.StatusCode))
			}

			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read %s: %w", job.DedupKey, err)
			}
			return nil
		},
		retry.Attempts(4),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Debug("retrying download", "attempt", n, "url", job.DedupKey, "error", err)
		}),
	)
	if err != nil {
		return err
	}

	if _, err := os.Stat(job.Path); err == nil {
		p.logger.Warn("file already exists, overwriting", "path", job.Path)
	}
	if err := os.MkdirAll(filepath.Dir(job.Path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", job.Path, err)
	}
	if err := os.WriteFile(job.Path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", job.Path, err)
	}

	if err := p.history.Append(job.DedupKey); err != nil {
		return err
	}
	p.logger.Debug("downloaded", "path", filepath.Base(job.Path))
	return nil
}
