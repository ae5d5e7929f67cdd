package pipeline

import (
	"context"
	"errors"
	"log/slog"
)

// Worker processes a single analysis job.
type Worker struct {
	analyzer *Analyzer
	log      *slog.Logger
}

func NewWorker(analyzer *Analyzer, log *slog.Logger) *Worker {
	return &Worker{analyzer: analyzer, log: log}
}

// Process runs the analysis for a job and records its outcome.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	out, err := w.analyzer.Run(ctx, Request{
		SourcePath: job.SourcePath(),
		OutputPath: job.OutputPath(),
		Highlight:  job.Highlight,
		Observe: func(s Stage) {
			if s != StageDone {
				job.SetStatus(statusFor(s), string(s))
			}
		},
	})
	if err != nil {
		phase := "analysis"
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			phase = string(stageErr.Stage)
		}
		log.Error("analysis failed", "stage", phase, "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, phase)
		return
	}

	job.Complete(out)
	log.Info("analysis complete", "text_elements", out.Counts.Text,
		"tables", out.Counts.Tables, "images", out.Counts.Images)
}
