package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/flexgen/internal/logging"
)

// Upload form field names.
const (
	FieldPrimary   = "excel_file"
	FieldArchive   = "folder_zip"
	FieldReference = "dff_file"
)

// recordTimeout bounds how long writing a run record may take.
const recordTimeout = 5 * time.Second

// ServiceConfig configures a Service.
type ServiceConfig struct {
	StagingDir      string        // Root for per-run workspaces
	KeepFiles       bool          // Leave workspaces on disk for the sweeper
	MaxExtractBytes int64         // Cap on uncompressed archive content (0 = unlimited)
	MaxConcurrent   int           // Parallel generations (default: 5)
	MaxWait         time.Duration // Wait for a free slot (default: 30s)
}

// Service turns uploads into generated workbooks.
type Service struct {
	cfg      ServiceConfig
	limiter  *Limiter
	recorder Recorder
}

// NewService creates the staging root and returns a Service. A nil recorder
// is replaced by an in-memory one.
func NewService(cfg ServiceConfig, recorder Recorder) (*Service, error) {
	if cfg.StagingDir == "" {
		return nil, errors.New("staging directory is required")
	}
	if err := os.MkdirAll(cfg.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	if recorder == nil {
		recorder = NewMemoryRecorder(DefaultHistorySize)
	}

	return &Service{
		cfg:      cfg,
		limiter:  NewLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		recorder: recorder,
	}, nil
}

// UploadFile is one uploaded file.
type UploadFile struct {
	Name   string
	Reader io.Reader
}

func (f *UploadFile) present() bool {
	return f != nil && f.Name != "" && f.Reader != nil
}

// UploadRequest holds the files of one generation request. Reference is
// optional; without it an empty reference table is used.
type UploadRequest struct {
	Primary   *UploadFile
	Archive   *UploadFile
	Reference *UploadFile
	XML       bool
}

// Output streams a generated workbook. Close releases the file and removes
// the run's workspace.
type Output struct {
	RunID   string
	Name    string
	Size    int64
	Summary Summary

	file    *os.File
	once    sync.Once
	cleanup func()
}

func (o *Output) Read(p []byte) (int, error) {
	return o.file.Read(p)
}

// Close is safe to call more than once.
func (o *Output) Close() error {
	var err error
	o.once.Do(func() {
		err = o.file.Close()
		o.cleanup()
	})
	return err
}

// RunUpload stages req in a fresh workspace, runs the generation and returns
// the result. Every outcome is recorded in the run history.
func (s *Service) RunUpload(ctx context.Context, req UploadRequest) (*Output, error) {
	run := Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		XML:       req.XML,
		Reference: req.Reference.present(),
	}
	if req.Primary != nil {
		run.InputName = req.Primary.Name
	}
	if req.Archive != nil {
		run.ArchiveName = req.Archive.Name
	}

	logger := logging.WithFields(ctx, "run_id", run.ID)

	out, err := s.runUpload(ctx, req, &run)
	if err != nil {
		logger.Error("generation failed", "error", err)
	} else {
		logger.Info("generation succeeded",
			"rows", run.Rows,
			"columns", run.Columns,
			"configs", run.Configs,
		)
	}
	s.record(ctx, run, err)

	return out, err
}

func (s *Service) runUpload(ctx context.Context, req UploadRequest, run *Run) (*Output, error) {
	if !req.Primary.present() || !req.Archive.present() {
		return nil, newError(ErrValidation, StageUpload, "", ErrMissingFiles)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	released := false
	release := func() {
		if !released {
			released = true
			s.limiter.Release()
		}
	}
	defer release()

	ws, err := NewWorkspace(s.cfg.StagingDir, run.ID)
	if err != nil {
		return nil, newError(ErrIO, StageUpload, "", err)
	}
	cleanup := func() {
		if s.cfg.KeepFiles {
			return
		}
		if err := ws.Remove(); err != nil {
			logging.FromContext(ctx).Warn("failed to remove workspace", "path", ws.Dir, "error", err)
		}
	}

	job, err := s.stage(ws, req)
	if err != nil {
		cleanup()
		return nil, err
	}
	job.RunID = run.ID

	summary, err := Generate(ctx, job)
	if err != nil {
		cleanup()
		return nil, err
	}
	run.Rows, run.Columns, run.Configs = summary.Rows, summary.Columns, summary.Configs

	info, err := os.Stat(job.OutputPath)
	if err != nil {
		cleanup()
		return nil, newError(ErrOutputMissing, StageVerify, job.OutputPath, err)
	}
	f, err := os.Open(job.OutputPath)
	if err != nil {
		cleanup()
		return nil, newError(ErrIO, StageVerify, job.OutputPath, err)
	}
	release()

	return &Output{
		RunID:   run.ID,
		Name:    OutputName,
		Size:    info.Size(),
		Summary: *summary,
		file:    f,
		cleanup: cleanup,
	}, nil
}

// stage persists the uploads, extracts the archive and prepares the
// reference table.
func (s *Service) stage(ws *Workspace, req UploadRequest) (Job, error) {
	job := Job{
		OutputPath: ws.Path(OutputName),
		XML:        req.XML,
	}

	var err error
	job.InputPath, err = ws.Save(FieldPrimary, req.Primary.Name, req.Primary.Reader)
	if err != nil {
		return job, newError(ErrIO, StageUpload, req.Primary.Name, err)
	}

	archivePath, err := ws.Save(FieldArchive, req.Archive.Name, req.Archive.Reader)
	if err != nil {
		return job, newError(ErrIO, StageUpload, req.Archive.Name, err)
	}
	job.ConfigDir, err = ws.Extract(archivePath, s.cfg.MaxExtractBytes)
	if err != nil {
		return job, newError(ErrIO, StageExtract, req.Archive.Name, err)
	}

	if req.Reference.present() {
		job.ReferencePath, err = ws.Save(FieldReference, req.Reference.Name, req.Reference.Reader)
		if err != nil {
			return job, newError(ErrIO, StageReference, req.Reference.Name, err)
		}
	} else {
		job.ReferencePath = ws.Path(EmptyReferenceName)
		if err := WriteEmptyReference(job.ReferencePath); err != nil {
			return job, newError(ErrIO, StageReference, EmptyReferenceName, err)
		}
	}

	return job, nil
}

func (s *Service) record(ctx context.Context, run Run, err error) {
	run.DurationMs = time.Since(run.StartedAt).Milliseconds()
	run.Status = RunSucceeded
	if err != nil {
		run.Status = RunFailed
		run.ErrorCode = MapError(err).Code
		run.Error = err.Error()
		var e *Error
		if errors.As(err, &e) {
			run.Stage = string(e.Stage)
		}
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorder.RecordRun(recCtx, run); err != nil {
		logging.FromContext(ctx).Warn("failed to record run", "run_id", run.ID, "error", err)
	}
}

// RecentRuns returns up to limit recorded runs, newest first.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	return s.recorder.RecentRuns(ctx, limit)
}

// Health verifies the staging root and, if supported, the history store.
func (s *Service) Health(ctx context.Context) error {
	info, err := os.Stat(s.cfg.StagingDir)
	if err != nil {
		return fmt.Errorf("staging directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("staging directory %s is not a directory", s.cfg.StagingDir)
	}

	if p, ok := s.recorder.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("history store: %w", err)
		}
	}
	return nil
}

// WaitForGenerations blocks until in-flight generations finish or ctx ends.
func (s *Service) WaitForGenerations(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// LimiterStatus returns the generation limiter state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// StagingDir returns the workspace root.
func (s *Service) StagingDir() string {
	return s.cfg.StagingDir
}
