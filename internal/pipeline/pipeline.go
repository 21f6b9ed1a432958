// Package pipeline registers extracted scans in the remote store and uploads a
// recompressed copy of each image, with bounded concurrency and per-item failure isolation.
//
// Each item moves through discovered -> validated -> registered -> uploaded -> finalized.
// A failure at any step ends that item in the failed state; other items are unaffected.
// Once an item is registered its remote row is kept and marked ERROR on failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rumor-ml/commons.systems/plantscan/internal/blob"
	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
)

// Quality selects the PNG compression used when recompressing scans.
// The zero value is maximum compression.
type Quality int

const (
	QualityBest Quality = iota
	QualityDefault
	QualitySpeed
	QualityNone
)

// Level returns the PNG compression level for q
func (q Quality) Level() png.CompressionLevel {
	switch q {
	case QualityDefault:
		return png.DefaultCompression
	case QualitySpeed:
		return png.BestSpeed
	case QualityNone:
		return png.NoCompression
	default:
		return png.BestCompression
	}
}

// finalizeTimeout bounds the ERROR update made after a failure, which runs
// even when the run's context is cancelled
const finalizeTimeout = 10 * time.Second

// Options configures a pipeline run
type Options struct {
	Concurrency int     // Number of workers (default 4)
	Quality     Quality // Recompression level (default QualityBest)
	Bucket      string
	Prefix      string

	// BeforeItem is called by the worker that claimed index, before the item starts.
	// OnItemResult is called exactly once per item when it reaches a terminal state;
	// registeredID is empty when the item failed before registration.
	// Both may be called from several goroutines at once.
	BeforeItem   func(index int, record fields.Record)
	OnItemResult func(index int, record fields.Record, registeredID string, err error)

	// Sessions, when set, receives a session document with running stats
	Sessions           SessionStore
	UserID             string
	Dir                string
	StatsBatchInterval time.Duration // default 500ms
	StatsBatchSize     int           // default 50
}

// DefaultOptions returns the default pipeline options
func DefaultOptions() Options {
	return Options{
		Concurrency:        4,
		Quality:            QualityBest,
		StatsBatchInterval: 500 * time.Millisecond,
		StatsBatchSize:     50,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Concurrency == 0 {
		o.Concurrency = d.Concurrency
	}
	if o.StatsBatchInterval == 0 {
		o.StatsBatchInterval = d.StatsBatchInterval
	}
	if o.StatsBatchSize == 0 {
		o.StatsBatchSize = d.StatsBatchSize
	}
	return o
}

// Validate validates the options
func (o Options) Validate() error {
	if o.Concurrency < 1 {
		return fmt.Errorf("Concurrency must be >= 1, got %d", o.Concurrency)
	}
	if o.Quality < QualityBest || o.Quality > QualityNone {
		return fmt.Errorf("unknown quality %d", o.Quality)
	}
	if o.StatsBatchInterval < 0 {
		return fmt.Errorf("StatsBatchInterval must be >= 0, got %v", o.StatsBatchInterval)
	}
	if o.StatsBatchSize < 1 {
		return fmt.Errorf("StatsBatchSize must be >= 1, got %d", o.StatsBatchSize)
	}
	return nil
}

// ItemResult is the terminal outcome of one item
type ItemResult struct {
	Index        int
	Path         string
	RegisteredID string
	ObjectKey    string
	State        ItemState
	Err          error
}

// Result summarizes a pipeline run. Items are in input order.
type Result struct {
	SessionID       string
	Total           int
	Succeeded       int
	Failed          int
	Items           []ItemResult
	SecondaryErrors []error // Non-fatal errors (status or session updates)
	Duration        time.Duration
}

// Errors returns the terminal error of every failed item in input order
func (r *Result) Errors() []error {
	var errs []error
	for _, item := range r.Items {
		if item.Err != nil {
			errs = append(errs, item.Err)
		}
	}
	return errs
}

// Run processes every (path, record) pair and blocks until all items are terminal.
// It returns an error only for invalid input; item failures are reported in the
// Result and through OnItemResult.
func Run(ctx context.Context, paths []string, records []fields.Record, reg Registrar, up BlobUploader, opts Options) (*Result, error) {
	if len(paths) != len(records) {
		return nil, fmt.Errorf("%w: %d paths, %d records", ErrLengthMismatch, len(paths), len(records))
	}
	if reg == nil {
		return nil, fmt.Errorf("registrar is required")
	}
	if up == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline options: %w", err)
	}

	startTime := time.Now()
	r := &runner{
		paths:     paths,
		records:   records,
		registrar: reg,
		uploader:  up,
		opts:      opts,
		result: &Result{
			Total: len(paths),
			Items: make([]ItemResult, len(paths)),
		},
	}

	session := &Session{
		ID:        uuid.New().String(),
		UserID:    opts.UserID,
		Status:    SessionStatusRunning,
		StartedAt: startTime,
		Dir:       opts.Dir,
		Bucket:    opts.Bucket,
		Prefix:    opts.Prefix,
		Stats:     SessionStats{Total: len(paths)},
	}
	sessions := opts.Sessions
	if sessions != nil {
		if err := sessions.Create(ctx, session); err != nil {
			r.secondary(fmt.Errorf("failed to create session: %w", err))
			sessions = nil
		} else {
			r.result.SessionID = session.ID
		}
	}

	r.stats = newStatsAccumulator(sessions, session, len(paths), opts.StatsBatchInterval, int64(opts.StatsBatchSize))

	flushCtx, cancelFlush := context.WithCancel(ctx)
	defer cancelFlush()
	flushDone := make(chan struct{})
	if sessions != nil {
		go func() {
			defer close(flushDone)
			r.periodicStatsFlush(flushCtx)
		}()
	} else {
		close(flushDone)
	}

	var cursor atomic.Int64
	var g errgroup.Group
	workers := min(opts.Concurrency, len(paths))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				index := int(cursor.Add(1) - 1)
				if index >= len(paths) {
					return nil
				}
				r.process(ctx, index)
			}
		})
	}
	_ = g.Wait()
	cancelFlush()
	<-flushDone

	for _, item := range r.result.Items {
		if item.Err != nil {
			r.result.Failed++
		} else {
			r.result.Succeeded++
		}
	}

	if sessions != nil {
		now := time.Now()
		session.CompletedAt = &now
		if r.result.Total > 0 && r.result.Succeeded == 0 {
			session.Status = SessionStatusFailed
		} else {
			session.Status = SessionStatusCompleted
		}
		if err := r.stats.flush(ctx); err != nil {
			r.secondary(fmt.Errorf("failed to update session %s: %w", session.ID, err))
		}
	}

	r.result.Duration = time.Since(startTime)
	return r.result, nil
}

// runner holds the shared read-only inputs of one run
type runner struct {
	paths     []string
	records   []fields.Record
	registrar Registrar
	uploader  BlobUploader
	opts      Options
	stats     *statsAccumulator

	mu     sync.Mutex // guards result.SecondaryErrors
	result *Result
}

// item is the mutable state of one upload item, owned by a single worker
type item struct {
	index        int
	path         string
	state        ItemState
	registeredID string
	objectKey    string
}

func (it *item) advance(to ItemState) error {
	if err := ValidateTransition(it.state, to); err != nil {
		return err
	}
	it.state = to
	return nil
}

// process runs one item to a terminal state and reports it
func (r *runner) process(ctx context.Context, index int) {
	record := r.records[index]
	if r.opts.BeforeItem != nil {
		r.opts.BeforeItem(index, record)
	}

	it := &item{index: index, path: r.paths[index], state: StateDiscovered}
	err := r.execute(ctx, it, record)
	if err != nil {
		err = &ItemError{Index: index, Path: it.path, Stage: it.state, Err: err}
		if HasRemoteRow(it.state) {
			outcome := Outcome{Status: StatusError, Message: err.Error()}
			if updateErr := r.markError(ctx, it.registeredID, outcome); updateErr != nil {
				r.secondary(fmt.Errorf("failed to mark %s %s: %w", it.registeredID, StatusError, updateErr))
			}
		}
		it.state = StateFailed
		r.stats.incrementErrors()
	} else {
		r.stats.incrementSucceeded()
	}

	// each index is written by exactly one worker
	r.result.Items[index] = ItemResult{
		Index:        index,
		Path:         it.path,
		RegisteredID: it.registeredID,
		ObjectKey:    it.objectKey,
		State:        it.state,
		Err:          err,
	}

	if r.opts.OnItemResult != nil {
		r.opts.OnItemResult(index, record, it.registeredID, err)
	}

	if r.opts.Sessions != nil && r.stats.shouldFlush() {
		if flushErr := r.stats.flush(ctx); flushErr != nil {
			r.secondary(fmt.Errorf("failed to flush session stats: %w", flushErr))
		}
	}
}

// execute walks the item through its states, stopping at the first error
func (r *runner) execute(ctx context.Context, it *item, record fields.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Stage 1: Validate local file
	if _, err := os.Stat(it.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingFile, it.path)
		}
		return fmt.Errorf("failed to check local image: %w", err)
	}
	if err := it.advance(StateValidated); err != nil {
		return err
	}

	// Stage 2: Register
	id, err := r.registrar.Register(ctx, record)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	if id == "" {
		return ErrNoRegisteredID
	}
	it.registeredID = id
	if err := it.advance(StateRegistered); err != nil {
		return err
	}
	r.stats.incrementRegistered()

	// Stage 3: Upload
	key, err := blob.ObjectKey(r.opts.Prefix, id)
	if err != nil {
		return err
	}
	it.objectKey = key
	if err := r.uploader.Upload(ctx, it.path, key, r.opts.Bucket, r.opts.Quality.Level()); err != nil {
		return fmt.Errorf("upload to %s failed: %w", key, err)
	}
	if err := it.advance(StateUploaded); err != nil {
		return err
	}
	r.stats.incrementUploaded()

	// Stage 4: Finalize
	if err := r.registrar.Finalize(ctx, id, Outcome{Status: StatusSuccess, ObjectKey: key}); err != nil {
		return fmt.Errorf("failed to mark %s %s: %w", id, StatusSuccess, err)
	}
	return it.advance(StateFinalized)
}

// markError records a failed outcome. The row must leave PENDING even when
// the failure was a cancellation, so the update detaches from ctx's cancellation.
func (r *runner) markError(ctx context.Context, id string, outcome Outcome) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	return r.registrar.Finalize(ctx, id, outcome)
}

func (r *runner) secondary(err error) {
	log.Printf("WARNING: %v", err)
	r.mu.Lock()
	r.result.SecondaryErrors = append(r.result.SecondaryErrors, err)
	r.mu.Unlock()
}

// periodicStatsFlush writes session stats on an interval until ctx is done.
// Flush errors are logged and recorded but never stop the run.
func (r *runner) periodicStatsFlush(ctx context.Context) {
	ticker := time.NewTicker(r.opts.StatsBatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.stats.shouldFlush() {
				if err := r.stats.flush(ctx); err != nil && ctx.Err() == nil {
					r.secondary(fmt.Errorf("failed to flush session stats: %w", err))
				}
			}
		}
	}
}
