package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/extractproof/internal/config"
)

func waitTerminal(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		changed := job.Changed()
		snap := job.Snapshot()
		if snap.Status.Terminal() {
			return snap
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("job %s stuck in %s", job.ID, snap.Status)
		}
	}
}

func TestOrchestrator_RunsJob(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{ArtifactDir: dir, WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, testAnalyzer(stubExtractor{raws: sampleRaws(t)[:1]}), quietLog())
	o.Start(context.Background())
	defer o.Stop()

	id := o.NewRunID()
	src, out := o.Paths(id, "report.pdf")
	if filepath.Dir(out) != dir || !strings.HasSuffix(out, id+".pdf") {
		t.Errorf("unexpected output path %s", out)
	}
	data, err := os.ReadFile(sourcePDF(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}

	job := NewJob(id, "report.pdf", src, out, true)
	if err := o.Submit(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := waitTerminal(t, job)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Errors)
	}
	if job.Outcome().ArtifactPath != out {
		t.Errorf("expected artifact %s, got %s", out, job.Outcome().ArtifactPath)
	}
	if o.GetJob(id) != job {
		t.Error("expected job to be tracked")
	}
}

func TestOrchestrator_FailedJobRecordsStage(t *testing.T) {
	cfg := config.Config{ArtifactDir: t.TempDir(), WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, testAnalyzer(stubExtractor{err: context.DeadlineExceeded}), quietLog())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob(o.NewRunID(), "x.pdf", "x.pdf", "out.pdf", true)
	if err := o.Submit(job); err != nil {
		t.Fatal(err)
	}
	snap := waitTerminal(t, job)
	if snap.Status != StatusFailed || snap.Phase != string(StageExtracting) {
		t.Errorf("expected failure in extracting, got %s/%s", snap.Status, snap.Phase)
	}
	if len(snap.Errors) != 1 {
		t.Errorf("expected one error, got %v", snap.Errors)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{ArtifactDir: t.TempDir(), WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	// Not started: nothing drains the queue.
	o := NewOrchestrator(cfg, testAnalyzer(stubExtractor{}), quietLog())

	if err := o.Submit(NewJob("a", "a.pdf", "", "", false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := NewJob("b", "b.pdf", "", "", false)
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if second.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %s", second.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	cfg := config.Config{ArtifactDir: t.TempDir(), WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, testAnalyzer(stubExtractor{}), quietLog())
	o.Start(context.Background())
	o.Stop()
	o.Stop()

	job := NewJob("late", "late.pdf", "", "", false)
	if err := o.Submit(job); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "shutting_down" {
		t.Errorf("expected rejected job failed while shutting down, got %s/%s", snap.Status, snap.Phase)
	}
}

func TestOrchestrator_StopDuringSubmits(t *testing.T) {
	cfg := config.Config{ArtifactDir: t.TempDir(), WorkerCount: 1, MaxQueueSize: 64, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, testAnalyzer(stubExtractor{err: context.Canceled}), quietLog())
	o.Start(context.Background())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 20 {
				err := o.Submit(NewJob(fmt.Sprintf("j%d-%d", i, j), "x.pdf", "", "", false))
				if err != nil && !errors.Is(err, ErrStopped) && !strings.Contains(err.Error(), "full") {
					t.Errorf("unexpected submit error: %v", err)
				}
			}
		}()
	}
	o.Stop()
	wg.Wait()
}
