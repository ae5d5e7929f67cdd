package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/extractproof/internal/config"
	"github.com/dgallion1/extractproof/internal/extract"
	"github.com/dgallion1/extractproof/internal/parser"
	"github.com/dgallion1/extractproof/internal/pipeline"
	"github.com/dgallion1/extractproof/internal/report"
	"github.com/go-chi/chi/v5"
)

func (s *Server) supported(filename string) bool {
	if s.cfg.ExtractBackend == config.BackendLocal {
		return parser.IsSupportedExtension(filename)
	}
	return extract.IsSupportedExtension(filename)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !s.supported(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	highlight := s.cfg.HighlightDefault
	if v := r.FormValue("highlight"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "highlight must be true or false", http.StatusBadRequest)
			return
		}
		highlight = b
	}
	if highlight && !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, "highlighting requires a PDF", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	runID := s.orchestrator.NewRunID()
	src, out := s.orchestrator.Paths(runID, filename)
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		s.log.Error("create upload dir", "error", err)
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(src, data, 0o644); err != nil {
		s.log.Error("store upload", "error", err)
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	job := pipeline.NewJob(runID, filename, src, out, highlight)
	job.ContentHash = pipeline.ContentHashHex(data)

	if err := s.orchestrator.Submit(job); err != nil {
		os.Remove(src)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"status":     pipeline.StatusQueued,
		"highlight":  highlight,
		"poll_url":   fmt.Sprintf("/api/analyze/%s/status", job.ID),
		"events_url": fmt.Sprintf("/api/analyze/%s/events", job.ID),
	})
}

// jobFor resolves the jobID URL parameter, writing a 404 when unknown.
func (s *Server) jobFor(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	jobID := chi.URLParam(r, "jobID")
	var job *pipeline.Job
	if pipeline.ValidRunID(jobID) {
		job = s.orchestrator.GetJob(jobID)
	}
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

// outcomeFor is jobFor for endpoints that need a finished run.
func (s *Server) outcomeFor(w http.ResponseWriter, r *http.Request) (*pipeline.Job, *pipeline.Outcome) {
	job := s.jobFor(w, r)
	if job == nil {
		return nil, nil
	}
	out := job.Outcome()
	if out == nil {
		jsonError(w, fmt.Sprintf("job is %s", job.Snapshot().Status), http.StatusConflict)
		return nil, nil
	}
	return job, out
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobFor(w, r)
	if job == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	job, out := s.outcomeFor(w, r)
	if job == nil {
		return
	}

	display, err := out.Display()
	if err != nil {
		s.log.Error("encode display images", "job_id", job.ID, "error", err)
		jsonError(w, "failed to encode images", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		JobID       string `json:"job_id"`
		ArtifactURL string `json:"artifact_url"`
		*pipeline.Display
	}{
		JobID:       job.ID,
		ArtifactURL: fmt.Sprintf("/api/analyze/%s/artifact", job.ID),
		Display:     display,
	})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	job, out := s.outcomeFor(w, r)
	if job == nil {
		return
	}
	f, err := os.Open(out.ArtifactPath)
	if err != nil {
		jsonError(w, "artifact no longer available", http.StatusGone)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		jsonError(w, "artifact no longer available", http.StatusGone)
		return
	}

	name := job.Filename
	if out.ArtifactPath != job.SourcePath() {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + "-highlighted.pdf"
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	job, out := s.outcomeFor(w, r)
	if job == nil {
		return
	}
	base := strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename))

	switch r.URL.Query().Get("format") {
	case "", "html":
		page, err := report.HTML(job.Filename, report.Markdown(out, job.Filename))
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, page)
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, report.Markdown(out, job.Filename))
	case "docx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"-extraction.docx"))
		if err := report.WriteDOCX(w, out, job.Filename); err != nil {
			s.log.Error("write docx report", "job_id", job.ID, "error", err)
		}
	default:
		jsonError(w, "format must be html, md or docx", http.StatusBadRequest)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
