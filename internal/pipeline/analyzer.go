package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/extractproof/internal/config"
	"github.com/dgallion1/extractproof/internal/document"
	"github.com/dgallion1/extractproof/internal/extract"
	"github.com/dgallion1/extractproof/internal/geom"
	"github.com/dgallion1/extractproof/internal/imaging"
	"github.com/dgallion1/extractproof/internal/locate"
	"github.com/dgallion1/extractproof/internal/overlay"
	"github.com/dgallion1/extractproof/internal/reconcile"
)

// Stage names a step of an analysis run.
type Stage string

const (
	StageExtracting  Stage = "extracting"
	StageReconciling Stage = "reconciling"
	StageLocating    Stage = "locating"
	StageRendering   Stage = "rendering"
	StageDone        Stage = "done"
)

// StageError reports which stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Request describes one analysis run.
type Request struct {
	SourcePath string
	OutputPath string
	Highlight  bool

	// Observe, if set, is called as each stage begins and once more with
	// StageDone.
	Observe func(Stage)
}

// Outcome is everything a run produces for display.
type Outcome struct {
	ArtifactPath     string
	FullText         string
	Tables           []string
	Images           []*imaging.Decoded
	RawJSON          string
	Counts           reconcile.Counts
	Highlights       geom.PageHighlights
	ImageBoxes       geom.PageImageBoxes
	ExtractSeconds   float64
	HighlightSeconds float64
}

// ExtractionTiming is the display line for upstream extraction time.
func (o *Outcome) ExtractionTiming() string {
	return fmt.Sprintf("**Time taken for extracting:** %.2f (s)", o.ExtractSeconds)
}

// HighlightTiming is the display line for locating plus rendering time.
func (o *Outcome) HighlightTiming() string {
	return fmt.Sprintf("**Time taken for highlighting:** %.2f (s)", o.HighlightSeconds)
}

// Analyzer runs extraction, reconciliation and, optionally, highlighting
// for a single document.
type Analyzer struct {
	extractor extract.Extractor
	locator   *locate.Locator
	renderer  *overlay.Renderer
	images    *imaging.Decoder
	timings   *StageTimings
	log       *slog.Logger
}

func NewAnalyzer(extractor extract.Extractor, locator *locate.Locator, renderer *overlay.Renderer, images *imaging.Decoder, log *slog.Logger) *Analyzer {
	return &Analyzer{
		extractor: extractor,
		locator:   locator,
		renderer:  renderer,
		images:    images,
		timings:   NewStageTimings(time.Hour),
		log:       log,
	}
}

// Timings returns the rolling per-stage durations of completed stages.
func (a *Analyzer) Timings() *StageTimings { return a.timings }

// NewAnalyzerFromConfig wires an Analyzer for the configured extraction
// backend. release closes the extraction client.
func NewAnalyzerFromConfig(cfg config.Config, log *slog.Logger) (a *Analyzer, release func()) {
	var ex extract.Extractor = extract.LocalExtractor{}
	release = func() {}
	if cfg.ExtractBackend != config.BackendLocal {
		client := extract.NewClient(cfg.ExtractURL, cfg.ExtractAPIKey, cfg.ExtractTimeout)
		ex, release = client, client.Close
	}
	a = NewAnalyzer(ex,
		locate.NewLocator(cfg.LocateWorkers, log),
		overlay.NewRenderer(overlay.DefaultStyle, log),
		imaging.NewDecoder(cfg.DisplayWidth, cfg.DisplayHeight),
		log)
	return a, release
}

// Run executes req. Any stage failure aborts the run with a *StageError and
// no outcome.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Outcome, error) {
	observe := req.Observe
	if observe == nil {
		observe = func(Stage) {}
	}
	log := a.log.With("source", req.SourcePath)

	observe(StageExtracting)
	start := time.Now()
	raws, err := a.extractor.Extract(ctx, req.SourcePath)
	if err != nil {
		return nil, &StageError{Stage: StageExtracting, Err: err}
	}
	extractDur := time.Since(start)
	a.timings.Record(StageExtracting, extractDur)
	extractSeconds := extractDur.Seconds()
	log.Info("extraction complete", "elements", len(raws), "seconds", extractSeconds)

	observe(StageReconciling)
	reconcileStart := time.Now()
	res, err := reconcile.Reconcile(raws)
	if err != nil {
		return nil, &StageError{Stage: StageReconciling, Err: err}
	}
	images, err := a.images.DecodeAll(res.Images)
	if err != nil {
		return nil, &StageError{Stage: StageReconciling, Err: err}
	}
	rawJSON, err := json.MarshalIndent(raws, "", "  ")
	if err != nil {
		return nil, &StageError{Stage: StageReconciling, Err: fmt.Errorf("marshal raw result: %w", err)}
	}
	a.timings.Record(StageReconciling, time.Since(reconcileStart))

	out := &Outcome{
		ArtifactPath:   req.SourcePath,
		FullText:       res.FullText,
		Tables:         res.Tables,
		Images:         images,
		RawJSON:        string(rawJSON),
		Counts:         res.Counts,
		ExtractSeconds: extractSeconds,
	}

	if req.Highlight || isPDF(req.SourcePath) {
		if err := a.locateAndRender(ctx, req, res, out, observe, log); err != nil {
			return nil, err
		}
	}

	observe(StageDone)
	log.Info("analysis complete", "artifact", out.ArtifactPath,
		"extract_seconds", out.ExtractSeconds, "highlight_seconds", out.HighlightSeconds)
	return out, nil
}

// isPDF reports whether path names a document with a page text layer.
func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// locateAndRender fills in the page boxes of out and, when highlighting,
// renders them onto a copy of the source. Highlighting time covers both
// steps and stays zero when nothing is rendered.
func (a *Analyzer) locateAndRender(ctx context.Context, req Request, res *reconcile.Result, out *Outcome, observe func(Stage), log *slog.Logger) error {
	start := time.Now()

	observe(StageLocating)
	doc, err := document.Open(req.SourcePath)
	if err != nil {
		return &StageError{Stage: StageLocating, Err: err}
	}
	highlights, err := a.locator.Locate(ctx, doc, res.FullText)
	pageCount := doc.PageCount()
	doc.Close()
	if err != nil {
		return &StageError{Stage: StageLocating, Err: err}
	}
	a.timings.Record(StageLocating, time.Since(start))
	imageBoxes, dropped := res.ImageLocations.Slots(pageCount)
	if len(dropped) > 0 {
		log.Warn("image locations on pages outside the document", "pages", dropped, "page_count", pageCount)
	}
	out.Highlights = highlights
	out.ImageBoxes = imageBoxes

	if !req.Highlight {
		return nil
	}

	observe(StageRendering)
	renderStart := time.Now()
	art, err := a.renderer.Render(ctx, req.SourcePath, highlights, imageBoxes, req.OutputPath)
	if err != nil {
		return &StageError{Stage: StageRendering, Err: err}
	}
	a.timings.Record(StageRendering, time.Since(renderStart))

	out.ArtifactPath = art.Path
	highlightDur := time.Since(start)
	a.timings.Record(StageHighlighting, highlightDur)
	out.HighlightSeconds = highlightDur.Seconds()
	return nil
}

// Display is the JSON form of an outcome shown to a user: the extracted
// content, the raw result, both timing lines and, when highlighting ran,
// the boxes drawn on each page.
type Display struct {
	FullText         string              `json:"full_text"`
	Tables           []string            `json:"tables"`
	Images           []string            `json:"images"`
	RawJSON          string              `json:"raw_json"`
	Counts           reconcile.Counts    `json:"counts"`
	ExtractionTiming string              `json:"extraction_timing"`
	HighlightTiming  string              `json:"highlight_timing"`
	TextBoxes        geom.PageHighlights `json:"text_boxes,omitempty"`
	ImageBoxes       geom.PageImageBoxes `json:"image_boxes,omitempty"`
}

// Display encodes the outcome's images as PNG data URIs and collects the
// rest of the display tuple.
func (o *Outcome) Display() (*Display, error) {
	images := make([]string, 0, len(o.Images))
	for i, img := range o.Images {
		uri, err := img.DataURI()
		if err != nil {
			return nil, fmt.Errorf("encode image %d: %w", i, err)
		}
		images = append(images, uri)
	}
	return &Display{
		FullText:         o.FullText,
		Tables:           o.Tables,
		Images:           images,
		RawJSON:          o.RawJSON,
		Counts:           o.Counts,
		ExtractionTiming: o.ExtractionTiming(),
		HighlightTiming:  o.HighlightTiming(),
		TextBoxes:        o.Highlights,
		ImageBoxes:       o.ImageBoxes,
	}, nil
}
