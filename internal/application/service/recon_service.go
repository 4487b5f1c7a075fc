// Package service orchestrates reconciliation runs: feed loading, rule
// lookup, matching, result encoding and summary persistence, managed as
// cancellable background jobs.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nitindhyani1996/recon-backend/internal/codec"
	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/config"
	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/storage"
	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// RunStatus represents the current state of a reconciliation job.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// RunRequest holds parameters for starting a reconciliation run.
type RunRequest struct {
	// Owner is recorded on the persisted summary and scopes the active
	// rule lookup. Zero means the configured default.
	Owner int64
	// Category scopes the active rule lookup. Zero means the
	// configured default.
	Category int
	// RuleID pins the run to a specific rule version. Zero means the
	// active (newest) rule for (owner, category).
	RuleID int64
}

// RunProgress holds the job's current phase for polling clients.
type RunProgress struct {
	CurrentPhase string
	LastUpdate   time.Time
}

// RunResult summarizes a completed run.
type RunResult struct {
	Reference        string
	TotalRecords     int
	Matched          int
	PartiallyMatched int
	Unmatched        int
}

// RunJob represents a running or finished reconciliation job.
type RunJob struct {
	ID          string
	Status      RunStatus
	Request     RunRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Progress    RunProgress
	Result      *RunResult
	Error       error
	cancelFunc  context.CancelFunc
}

// ReconService manages reconciliation runs.
type ReconService struct {
	cfg     *config.Config
	storage storage.Repository
	logger  *slog.Logger

	jobs      map[string]*RunJob
	jobsMutex sync.RWMutex

	// Only one run can execute at a time; concurrent runs would race on
	// the summary table.
	runLock sync.Mutex
}

// NewReconService creates a new reconciliation service.
func NewReconService(cfg *config.Config, store storage.Repository, logger *slog.Logger) *ReconService {
	return &ReconService{
		cfg:     cfg,
		storage: store,
		logger:  logger,
		jobs:    make(map[string]*RunJob),
	}
}

// StartRun starts a reconciliation run asynchronously and returns its
// job ID.
//
// The passed context is NOT used as the parent for the background job:
// jobs derive from context.Background() so they survive the HTTP
// request that started them. Use CancelRun to stop a running job.
func (s *ReconService) StartRun(_ context.Context, req RunRequest) (string, error) {
	if !s.runLock.TryLock() {
		return "", fmt.Errorf("a reconciliation run is already in progress")
	}

	if req.Owner == 0 {
		req.Owner = s.cfg.Recon.DefaultOwner
	}
	if req.Category == 0 {
		req.Category = s.cfg.Recon.DefaultCategory
	}

	jobID := uuid.NewString()
	jobCtx, cancel := context.WithCancel(context.Background())

	job := &RunJob{
		ID:         jobID,
		Status:     StatusPending,
		Request:    req,
		StartedAt:  time.Now(),
		cancelFunc: cancel,
		Progress:   RunProgress{CurrentPhase: "pending", LastUpdate: time.Now()},
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, job)

	s.logger.Info("reconciliation run started", "job_id", jobID, "owner", req.Owner)
	return jobID, nil
}

// GetRun retrieves a run job by ID.
func (s *ReconService) GetRun(jobID string) (*RunJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// ListRuns returns all known jobs, newest first not guaranteed.
func (s *ReconService) ListRuns() []*RunJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*RunJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelRun cancels a pending or running job. A job that has already
// persisted its summary cannot be cancelled.
func (s *ReconService) CancelRun(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	job.Progress.CurrentPhase = "cancelled"
	job.Progress.LastUpdate = now

	s.logger.Info("reconciliation run cancelled", "job_id", jobID)
	return nil
}

// DeleteRun removes a persisted run summary by its reference.
func (s *ReconService) DeleteRun(ctx context.Context, reference string) error {
	return s.storage.DeleteSummary(ctx, reference)
}

// runJob executes one reconciliation run in a background goroutine.
// Every phase transition bails out if the job was cancelled meanwhile;
// a cancellation is never relabelled as running or failed.
func (s *ReconService) runJob(ctx context.Context, job *RunJob) {
	defer s.runLock.Unlock()

	if !s.setPhase(job.ID, "loading_feeds") {
		return
	}

	atmList, err := s.loadFeed(ctx, recon.SourceATM)
	if err != nil {
		s.failJob(ctx, job.ID, err)
		return
	}
	switchList, err := s.loadFeed(ctx, recon.SourceSwitch)
	if err != nil {
		s.failJob(ctx, job.ID, err)
		return
	}
	cbsList, err := s.loadFeed(ctx, recon.SourceCBS)
	if err != nil {
		s.failJob(ctx, job.ID, err)
		return
	}

	if !s.setPhase(job.ID, "loading_rule") {
		return
	}

	rule, err := s.loadRule(ctx, job.Request)
	if err != nil {
		s.failJob(ctx, job.ID, err)
		return
	}
	// A missing or malformed rule is not fatal: matching degrades to
	// everything unmatched, which the summary makes visible.
	if rule == nil {
		s.logger.Warn("no matching rule configured, all records will be unmatched", "job_id", job.ID)
	}

	if !s.setPhase(job.ID, "matching") {
		return
	}

	buckets := recon.Classify(atmList, switchList, cbsList, rule)

	if !s.setPhase(job.ID, "encoding") {
		return
	}

	summary := &storage.ReconSummary{
		Reference:        newRunReference(time.Now()),
		MatchedEncoded:   codec.Encode(codec.FromOutcomes(buckets.Matched)),
		PartialEncoded:   codec.Encode(codec.FromOutcomes(buckets.Partial)),
		UnmatchedEncoded: codec.Encode(codec.FromOutcomes(buckets.Unmatched)),
		AddedBy:          job.Request.Owner,
	}

	// Last cancellation point before the write; after this the run
	// persists in full or not at all.
	if ctx.Err() != nil {
		return
	}

	if !s.setPhase(job.ID, "persisting") {
		return
	}

	if _, err := s.storage.SaveSummary(ctx, summary); err != nil {
		s.failJob(ctx, job.ID, fmt.Errorf("failed to persist summary: %w", err))
		return
	}

	s.completeJob(job.ID, &RunResult{
		Reference:        summary.Reference,
		TotalRecords:     buckets.Total(),
		Matched:          len(buckets.Matched),
		PartiallyMatched: len(buckets.Partial),
		Unmatched:        len(buckets.Unmatched),
	})
}

// loadFeed loads one source's records and refuses to proceed when the
// feed is empty: reconciling against a missing feed would mark every
// transaction unmatched and overwrite a good summary.
func (s *ReconService) loadFeed(ctx context.Context, source recon.Source) ([]*recon.Record, error) {
	records, err := s.storage.LoadRecords(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s feed: %w", source, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no %s transactions loaded, upload the feed before running reconciliation", source)
	}
	return records, nil
}

func (s *ReconService) loadRule(ctx context.Context, req RunRequest) (*recon.Rule, error) {
	if req.RuleID != 0 {
		rule, err := s.storage.GetRule(ctx, req.RuleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule %d: %w", req.RuleID, err)
		}
		if rule == nil {
			return nil, fmt.Errorf("rule not found: %d", req.RuleID)
		}
		return rule, nil
	}
	owner := strconv.FormatInt(req.Owner, 10)
	rule, err := s.storage.GetActiveRule(ctx, owner, req.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to load active rule for owner %s category %d: %w", owner, req.Category, err)
	}
	return rule, nil
}

// setPhase advances a live job to the next phase. It reports false when
// the job has already reached a terminal status, so a cancelled job is
// never flipped back to running by its own goroutine.
func (s *ReconService) setPhase(jobID string, phase string) bool {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || isTerminal(job.Status) {
		return false
	}
	job.Status = StatusRunning
	job.Progress.CurrentPhase = phase
	job.Progress.LastUpdate = time.Now()
	return true
}

func isTerminal(status RunStatus) bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusCancelled
}

func (s *ReconService) completeJob(jobID string, result *RunResult) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists && !isTerminal(job.Status) {
		now := time.Now()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.Result = result
		job.Progress.CurrentPhase = "completed"
		job.Progress.LastUpdate = now
		s.logger.Info("reconciliation run completed",
			"job_id", jobID,
			"reference", result.Reference,
			"total", result.TotalRecords,
			"matched", result.Matched,
			"partially_matched", result.PartiallyMatched,
			"unmatched", result.Unmatched,
		)
	}
}

// failJob marks a job failed unless the underlying cause is the job's
// own cancellation, which CancelRun has already recorded.
func (s *ReconService) failJob(ctx context.Context, jobID string, err error) {
	if ctx.Err() == context.Canceled {
		return
	}

	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists && !isTerminal(job.Status) {
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = err
		job.Progress.CurrentPhase = "failed"
		job.Progress.LastUpdate = now
		s.logger.Error("reconciliation run failed", "job_id", jobID, "error", err)
	}
}

// newRunReference builds a run reference: "RECON", two random uppercase
// letters, then the run date as DDMMYY.
func newRunReference(now time.Time) string {
	letters := []byte{
		byte('A' + rand.Intn(26)),
		byte('A' + rand.Intn(26)),
	}
	return "RECON" + string(letters) + now.Format("020106")
}
