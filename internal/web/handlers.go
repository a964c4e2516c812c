package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/flexgen/internal/core"
	"github.com/JonMunkholm/flexgen/internal/logging"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// multipartMemory is how much of a form is buffered in memory before
	// spilling file parts to disk.
	multipartMemory = 32 << 20

	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// handleHealth reports whether the service can accept generations.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Health(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleGenerate stages the uploaded files, runs the generation and streams
// output.xlsx back.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, r, formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := core.UploadRequest{}
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for field, dst := range map[string]**core.UploadFile{
		core.FieldPrimary:   &req.Primary,
		core.FieldArchive:   &req.Archive,
		core.FieldReference: &req.Reference,
	} {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			respondError(w, r, core.NewValidationError(err))
			return
		}
		closers = append(closers, file)
		*dst = &core.UploadFile{Name: header.Filename, Reader: file}
	}

	out, err := s.service.RunUpload(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer out.Close()

	h := w.Header()
	h.Set("Content-Type", xlsxContentType)
	h.Set("Content-Disposition", `attachment; filename="`+out.Name+`"`)
	h.Set("Content-Length", strconv.FormatInt(out.Size, 10))
	h.Set("Cache-Control", "no-store")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Expose-Headers", "Content-Disposition")
	h.Set("X-Run-ID", out.RunID)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, out); err != nil {
		logging.WithFields(r.Context(), "run_id", out.RunID).Warn("failed to stream output", "error", err)
	}
}

// formError classifies a multipart parsing failure. A request that is not a
// multipart form at all carries none of the required files.
func formError(err error) error {
	if errors.Is(err, http.ErrNotMultipart) {
		return core.NewValidationError(core.ErrMissingFiles)
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return core.NewValidationError(fmt.Errorf("upload exceeds maximum size of %d bytes", tooLarge.Limit))
	}
	return core.NewValidationError(err)
}

// handleListRuns returns recent generation runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultRunsLimit)
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := s.service.RecentRuns(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []core.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":       runs,
		"generation": s.service.LimiterStatus(),
	})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
