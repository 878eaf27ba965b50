package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/krafity/krafity/internal/domain"
	"github.com/krafity/krafity/internal/logger"
	"github.com/krafity/krafity/internal/metrics"
	"github.com/krafity/krafity/internal/prompts"
	"github.com/krafity/krafity/internal/provider"
	"github.com/krafity/krafity/internal/storage"
)

// JobConfig holds configuration for the job orchestrator.
type JobConfig struct {
	DefaultDurationSeconds int
	MinDurationSeconds     int
	MaxDurationSeconds     int

	// Retention is how long completed and failed records remain
	// pollable before the janitor reaps them.
	Retention time.Duration

	// PublicHost is substituted when normalizing storage-scheme result
	// URIs to fetchable URLs.
	PublicHost string
}

// JobService orchestrates video generation jobs: it creates the job
// record, runs the enrichment and dispatch pipeline in the background,
// and answers status polls.
type JobService struct {
	store    *JobStore
	provider provider.Provider
	enrich   *EnrichmentService
	cfg      JobConfig
	logger   *logger.Logger
}

// NewJobService creates a new job orchestrator.
func NewJobService(store *JobStore, p provider.Provider, enrich *EnrichmentService, log *logger.Logger, cfg JobConfig) *JobService {
	if cfg.DefaultDurationSeconds == 0 {
		cfg.DefaultDurationSeconds = 6
	}
	if cfg.MinDurationSeconds == 0 {
		cfg.MinDurationSeconds = 4
	}
	if cfg.MaxDurationSeconds == 0 {
		cfg.MaxDurationSeconds = 8
	}
	if cfg.Retention == 0 {
		cfg.Retention = time.Hour
	}
	return &JobService{
		store:    store,
		provider: p,
		enrich:   enrich,
		cfg:      cfg,
		logger:   log,
	}
}

func (s *JobService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Create validates the request, inserts a pending record and schedules
// the background pipeline. It returns before any external call is made,
// so callers never block on provider latency. The pending record is
// inserted synchronously to close the visibility race where a fast poll
// could otherwise see not-found for a freshly created job.
func (s *JobService) Create(ctx context.Context, req *domain.VideoJobRequest) (string, error) {
	if len(req.Image) == 0 {
		return "", domain.NewValidationError("no media provided")
	}
	if _, err := sniffImage(req.Image); err != nil {
		return "", domain.NewValidationError("primary image: %v", err)
	}
	if len(req.EndingImage) > 0 {
		if _, err := sniffImage(req.EndingImage); err != nil {
			return "", domain.NewValidationError("ending image: %v", err)
		}
	}

	jobID := "job-" + uuid.New().String()
	s.store.Insert(&domain.JobRecord{
		ID:        jobID,
		State:     domain.JobStatePending,
		StartedAt: time.Now().UTC(),
	})
	metrics.JobsCreated.Inc()

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID: jobID,
		logger.FieldSize:  len(req.Image),
	}).Info("Video job created")

	// The background pipeline must outlive the request context: once a
	// job is accepted it runs to a terminal state even if the caller
	// never polls again.
	bgCtx := logger.WithFields(context.Background(), logger.Fields{
		logger.FieldJobID:     jobID,
		logger.FieldComponent: "job_pipeline",
	})
	go s.process(bgCtx, jobID, req)

	return jobID, nil
}

// process runs the enrichment and dispatch pipeline for one job. Every
// failure path, including a panic, ends with a failed record: a dying
// background task must never leave a job stranded in pending.
func (s *JobService) process(ctx context.Context, jobID string, req *domain.VideoJobRequest) {
	defer func() {
		if r := recover(); r != nil {
			s.log(ctx).WithField("panic", fmt.Sprint(r)).Error("Job pipeline panicked:\n" + string(debug.Stack()))
			s.fail(ctx, jobID, domain.NewPipelineError("pipeline", fmt.Errorf("panic: %v", r)))
		}
	}()

	primaryFrame, primaryDesc, err := s.enrich.Enrich(ctx, req.Image)
	if err != nil {
		s.fail(ctx, jobID, domain.NewPipelineError("enrich_primary", err))
		return
	}

	var endingFrame []byte
	var endingDesc string
	if len(req.EndingImage) > 0 {
		endingFrame, endingDesc, err = s.enrich.Enrich(ctx, req.EndingImage)
		if err != nil {
			s.fail(ctx, jobID, domain.NewPipelineError("enrich_ending", err))
			return
		}
	}

	primaryMIME, _ := sniffImage(primaryFrame)
	genReq := &provider.GenerateRequest{
		Prompt:          s.buildPrompt(req.Prompt, primaryDesc),
		PrimaryFrame:    primaryFrame,
		PrimaryMIMEType: primaryMIME,
		DurationSeconds: s.clampDuration(req.DurationSeconds),
	}
	if len(endingFrame) > 0 {
		endingMIME, _ := sniffImage(endingFrame)
		genReq.SecondaryFrame = endingFrame
		genReq.SecondaryMIMEType = endingMIME
	}

	operationRef, err := s.provider.Generate(ctx, genReq)
	if err != nil {
		s.fail(ctx, jobID, domain.NewPipelineError("dispatch", domain.NewCollaboratorError("generation provider", err)))
		return
	}

	metadata := map[string]string{
		"annotation_description": primaryDesc,
	}
	if endingDesc != "" {
		metadata["ending_annotation_description"] = endingDesc
	}
	s.store.SetActive(jobID, operationRef, metadata)

	s.log(ctx).WithField("operation_ref", operationRef).Info("Generation dispatched")
}

func (s *JobService) fail(ctx context.Context, jobID string, err error) {
	s.store.SetFailed(jobID, err.Error(), time.Now().UTC())
	metrics.JobsFailed.Inc()
	s.log(ctx).WithError(err).Error("Job pipeline failed")
}

// buildPrompt returns the caller's prompt, or assembles a fallback from
// the enrichment context when none was supplied.
func (s *JobService) buildPrompt(custom, annotationDesc string) string {
	if custom != "" {
		return custom
	}
	prompt := prompts.FallbackPromptPrefix
	if !IsCleanDescription(annotationDesc) {
		prompt += fmt.Sprintf(prompts.FallbackContextFormat, annotationDesc)
	}
	return prompt
}

func (s *JobService) clampDuration(seconds int) int {
	if seconds == 0 {
		return s.cfg.DefaultDurationSeconds
	}
	if seconds < s.cfg.MinDurationSeconds {
		return s.cfg.MinDurationSeconds
	}
	if seconds > s.cfg.MaxDurationSeconds {
		return s.cfg.MaxDurationSeconds
	}
	return seconds
}

// Status answers a poll for jobID. Polls are read-only apart from the
// documented active-to-completed transition on the first poll that
// observes the provider operation finished. Completed and failed jobs
// keep answering the same terminal status until the janitor reaps them.
func (s *JobService) Status(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	rec, ok := s.store.Get(jobID)
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	status := &domain.JobStatus{
		JobID:     rec.ID,
		StartedAt: rec.StartedAt,
		Metadata:  rec.Metadata,
	}

	switch rec.State {
	case domain.JobStatePending:
		status.Status = domain.StatusWaiting
		return status, nil

	case domain.JobStateFailed:
		status.Status = domain.StatusError
		status.Error = rec.ErrorDetail
		endedAt := rec.EndedAt
		status.EndedAt = &endedAt
		return status, nil

	case domain.JobStateCompleted:
		status.Status = domain.StatusDone
		status.VideoURL = rec.VideoURL
		endedAt := rec.EndedAt
		status.EndedAt = &endedAt
		return status, nil
	}

	// Active: ask the provider.
	result, err := s.provider.Poll(ctx, rec.OperationRef)
	if err != nil {
		return nil, domain.NewCollaboratorError("generation provider", err)
	}
	if !result.Done {
		status.Status = domain.StatusWaiting
		return status, nil
	}

	videoURL := storage.NormalizeURI(result.ResultURI, s.cfg.PublicHost)
	endedAt := time.Now().UTC()
	s.store.SetCompleted(jobID, videoURL, endedAt)
	metrics.JobsCompleted.Inc()

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID: jobID,
		"video_url":       videoURL,
	}).Info("Job completed")

	status.Status = domain.StatusDone
	status.VideoURL = videoURL
	status.EndedAt = &endedAt
	return status, nil
}

// StartJanitor launches the retention reaper. It runs until ctx is
// cancelled.
func (s *JobService) StartJanitor(ctx context.Context) {
	interval := s.cfg.Retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if reaped := s.store.ReapTerminal(time.Now().UTC().Add(-s.cfg.Retention)); reaped > 0 {
					s.logger.WithField("reaped", reaped).Debug("Reaped terminal job records")
				}
			}
		}
	}()
}
