// Package pipeline runs a generation: load the catalog, render every record
// batch by batch, upload the survivors and report progress. Failures are
// isolated per record and per batch; only a catalog failure ends a run early.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"brandgen/internal/batch"
	"brandgen/internal/catalog"
	"brandgen/internal/models"
	"brandgen/internal/naming"
	"brandgen/internal/pkg/errors"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/progress"
	"brandgen/internal/render"
	"brandgen/internal/upload"
)

// ErrRunInProgress is returned when Run is called while another run is active.
// Callers treat it as a no-op.
var ErrRunInProgress = stderrors.New("generation already in progress")

// Deps wires a Pipeline.
type Deps struct {
	Source    catalog.Source
	Renderer  render.Renderer
	Encoder   render.Encoder
	Transport upload.Transport
	Reporter  *progress.Reporter
	Log       *logger.Logger

	// BatchSize is clamped to batch.MinSize..batch.MaxSize; zero means batch.DefaultSize.
	BatchSize int
	// Concurrency caps renders in flight per batch; zero renders the whole batch at once.
	Concurrency int
}

// Pipeline is safe for concurrent use; overlapping runs are rejected.
type Pipeline struct {
	source      catalog.Source
	renderer    render.Renderer
	encoder     render.Encoder
	transport   upload.Transport
	reporter    *progress.Reporter
	log         *logger.Logger
	batchSize   int
	concurrency int

	guard guard
	now   func() time.Time
	newID func() string
}

// New builds a pipeline. A nil Reporter or Log gets a default.
func New(d Deps) *Pipeline {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	reporter := d.Reporter
	if reporter == nil {
		reporter = progress.NewReporter(log)
	}

	return &Pipeline{
		source:      d.Source,
		renderer:    d.Renderer,
		encoder:     d.Encoder,
		transport:   d.Transport,
		reporter:    reporter,
		log:         log.WithComponent("pipeline"),
		batchSize:   batch.Clamp(d.BatchSize),
		concurrency: max(d.Concurrency, 0),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// State reports where the current run is.
func (p *Pipeline) State() State { return p.guard.state() }

// Running reports whether a run is loading or processing.
func (p *Pipeline) Running() bool { return p.guard.active() }

// BatchSize is the effective batch size.
func (p *Pipeline) BatchSize() int { return p.batchSize }

// Run executes one generation. It returns ErrRunInProgress without side
// effects when a run is already active, and a CATALOG_LOAD_ERROR when the
// catalog cannot be used. Batch and record failures never surface here; they
// are reflected in the Summary counts.
func (p *Pipeline) Run(ctx context.Context) (sum Summary, err error) {
	if !p.guard.acquire() {
		return Summary{}, ErrRunInProgress
	}

	runID := p.newID()
	ctx = logger.ContextWithRunID(ctx, runID)
	log := p.log.WithRunID(runID)

	run := &RunState{Start: p.now()}
	sum.RunID = runID
	p.reporter.StartRun(runID)

	defer func() {
		sum.RunState = *run
		sum.Elapsed = p.now().Sub(run.Start)
		sum.Err = err
		p.reporter.Info("Generation finished in %.1f s", sum.Elapsed.Seconds())
		p.reporter.Info("Total: %d/%d images uploaded", run.Succeeded, run.Total)
		p.reporter.Info("%s", progress.FinalStatus(run.Succeeded, run.Total))
		log.Info("run finished",
			"total", run.Total,
			"processed", run.Processed,
			"succeeded", run.Succeeded,
			"duration_ms", sum.Elapsed.Milliseconds(),
		)
		p.guard.release()
	}()

	p.reporter.Info("Starting image generation")

	records, err := p.load(ctx)
	if err != nil {
		p.reporter.Error(err, "Critical error")
		return sum, err
	}
	run.Total = len(records)

	batches, err := batch.Chunk(records, p.batchSize)
	if err != nil {
		err = errors.Wrap(err, "pipeline.chunk", "cannot split catalog")
		p.reporter.Error(err, "Critical error")
		return sum, err
	}

	p.guard.set(StateProcessing)
	first := 0
	for i, b := range batches {
		stat := p.processBatch(ctx, log.WithBatch(i+1), i+1, first, b)
		first += len(b)

		run.advance(len(b), stat.Accepted)
		sum.Batches = append(sum.Batches, stat)
		p.reporter.Update(run.Snapshot())
	}

	return sum, nil
}

// load fetches the catalog and drops records without a brand.
func (p *Pipeline) load(ctx context.Context) ([]models.BrandRecord, error) {
	p.guard.set(StateLoading)
	p.reporter.Info("Loading brand list...")

	all, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, errors.CatalogLoad(err, "failed to load brands")
	}
	records := catalog.Usable(all)
	if len(records) == 0 {
		return nil, errors.CatalogLoad(nil, "no data to process").WithField("fetched", len(all))
	}

	p.reporter.Info("Loaded %d brands", len(records))
	return records, nil
}

func (p *Pipeline) processBatch(ctx context.Context, log *logger.Logger, index, first int, records []models.BrandRecord) progress.BatchStat {
	stat := progress.BatchStat{Index: index, First: first + 1, Last: first + len(records)}
	p.reporter.Info("--- Batch %d (%d-%d) ---", index, stat.First, stat.Last)

	if err := ctx.Err(); err != nil {
		stat.Err = err
		p.reporter.Error(err, "Skipping batch %d", index)
		return stat
	}

	results := p.renderBatch(ctx, records)
	files := survivors(results, p.encoder.ContentType())
	stat.Rendered = len(files)

	if len(files) == 0 {
		stat.Skipped = true
		p.reporter.Info("No valid images in batch %d, upload skipped", index)
		return stat
	}

	p.reporter.Info("Uploading batch (%d/%d files)...", len(files), len(records))
	start := p.now()
	out, err := p.transport.Upload(ctx, files)
	if err != nil {
		stat.Err = err
		p.reporter.Error(err, "Batch %d upload failed", index)
		return stat
	}

	stat.Accepted = min(max(out.Accepted, 0), len(files))
	p.reporter.Info("Uploaded %d files", stat.Accepted)
	log.Debug("batch uploaded",
		"files", len(files),
		"accepted", stat.Accepted,
		"count_reported", out.Reported,
		"duration_ms", p.now().Sub(start).Milliseconds(),
	)
	return stat
}

// renderBatch renders every record concurrently and returns the results in
// record order. It never fails; a failed record has no artifact.
func (p *Pipeline) renderBatch(ctx context.Context, records []models.BrandRecord) []RenderResult {
	results := make([]RenderResult, len(records))

	var g errgroup.Group
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}
	for i, rec := range records {
		g.Go(func() error {
			results[i] = p.renderOne(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// renderOne does not panic: a panicking renderer or encoder yields a record
// without an artifact.
func (p *Pipeline) renderOne(ctx context.Context, rec models.BrandRecord) (res RenderResult) {
	res = RenderResult{Record: rec}
	defer func() {
		if r := recover(); r != nil {
			res.Artifact = nil
			p.log.Error("render panic recovered",
				"brand", rec.Brand,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			p.reporter.Error(errors.Render(fmt.Errorf("panic: %v", r), rec.Brand), "Failed to generate %s", rec.Brand)
		}
	}()

	img, err := p.renderer.Render(ctx, rec)
	if err == nil && (img == nil || img.Bounds().Empty()) {
		err = stderrors.New("renderer returned an empty image")
	}
	if err != nil {
		p.reporter.Error(errors.Render(err, rec.Brand), "Failed to generate %s", rec.Brand)
		return res
	}

	data, err := p.encoder.Encode(ctx, img)
	if err != nil {
		p.reporter.Error(errors.Packaging(err, rec.Brand), "Failed to process %s", rec.Brand)
		return res
	}

	res.Artifact = data
	return res
}

// survivors names the rendered artifacts in record order.
func survivors(results []RenderResult, contentType string) []upload.File {
	files := make([]upload.File, 0, len(results))
	for _, r := range results {
		if !r.OK() {
			continue
		}
		files = append(files, upload.File{
			Name:        naming.Filename(r.Record),
			ContentType: contentType,
			Data:        r.Artifact,
		})
	}
	return files
}
