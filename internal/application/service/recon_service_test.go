package service

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/config"
	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/storage"
	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

func testService(repo storage.Repository) *ReconService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReconService(config.Default(), repo, logger)
}

func feedRecord(source recon.Source, rrn string, amountField string, amount float64) *recon.Record {
	return recon.NewRecord(source, []recon.Field{
		{Name: "rrn", Value: recon.String(rrn)},
		{Name: amountField, Value: recon.Number(amount)},
		{Name: "transactiontype", Value: recon.String("Withdrawal")},
		{Name: "terminalid", Value: recon.String("T001")},
		{Name: "datetime", Value: recon.String("2025-12-18 10:30:00")},
	})
}

func seedMock(repo *storage.MockRepository) {
	repo.Records[recon.SourceATM] = []*recon.Record{
		feedRecord(recon.SourceATM, "100", "amount", 500),
		feedRecord(recon.SourceATM, "200", "amount", 250),
	}
	repo.Records[recon.SourceSwitch] = []*recon.Record{
		feedRecord(recon.SourceSwitch, "100", "amountminor", 500),
	}
	repo.Records[recon.SourceCBS] = []*recon.Record{
		feedRecord(recon.SourceCBS, "100", "dr", 500),
	}
}

func seedRule(t *testing.T, repo *storage.MockRepository, owner string) {
	t.Helper()
	_, err := repo.SaveRule(context.Background(), &recon.Rule{
		Owner:    owner,
		Category: 1,
		MatchCondition: recon.MatchCondition{
			MatchingGroups: []recon.MatchingGroup{{
				Fields: []recon.RuleField{
					{FieldA: "rrn", FieldB: "rrn", Operator: recon.OpEQ},
					{FieldB: "rrn", FieldC: "rrn", Operator: recon.OpEQ},
				},
			}},
		},
		Tolerance: recon.Tolerance{AllowAmountDiff: "N", AmountDiff: decimal.NewFromInt(10)},
	})
	require.NoError(t, err)
}

func waitForJob(t *testing.T, s *ReconService, jobID string) *RunJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := s.GetRun(jobID)
		require.NoError(t, err)
		switch job.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", jobID)
	return nil
}

func TestRunCompletesAndPersists(t *testing.T) {
	repo := storage.NewMockRepository()
	seedMock(repo)
	seedRule(t, repo, "7")
	s := testService(repo)

	jobID, err := s.StartRun(context.Background(), RunRequest{Owner: 7})
	require.NoError(t, err)

	job := waitForJob(t, s, jobID)
	require.Equal(t, StatusCompleted, job.Status, "job error: %v", job.Error)
	require.NotNil(t, job.Result)
	assert.Equal(t, 2, job.Result.TotalRecords)
	assert.Equal(t, 1, job.Result.Matched)
	assert.Equal(t, 0, job.Result.PartiallyMatched)
	assert.Equal(t, 1, job.Result.Unmatched)
	assert.Regexp(t, regexp.MustCompile(`^RECON[A-Z]{2}\d{6}$`), job.Result.Reference)

	assert.True(t, repo.SaveSummaryCalled)
	require.Len(t, repo.Summaries, 1)
	saved := repo.Summaries[0]
	assert.Equal(t, job.Result.Reference, saved.Reference)
	assert.Equal(t, int64(7), saved.AddedBy)
	assert.Contains(t, saved.MatchedEncoded, "MATCHED")
	assert.Contains(t, saved.UnmatchedEncoded, "200")
}

func TestRunRefusesEmptyFeed(t *testing.T) {
	repo := storage.NewMockRepository()
	seedMock(repo)
	seedRule(t, repo, "1")
	repo.Records[recon.SourceSwitch] = nil
	s := testService(repo)

	jobID, err := s.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)

	job := waitForJob(t, s, jobID)
	require.Equal(t, StatusFailed, job.Status)
	require.Error(t, job.Error)
	assert.Contains(t, job.Error.Error(), "SWITCH")
	assert.False(t, repo.SaveSummaryCalled, "a refused run must not persist")
}

func TestRunWithoutRuleLeavesEverythingUnmatched(t *testing.T) {
	repo := storage.NewMockRepository()
	seedMock(repo)
	s := testService(repo)

	jobID, err := s.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)

	job := waitForJob(t, s, jobID)
	require.Equal(t, StatusCompleted, job.Status, "job error: %v", job.Error)
	assert.Equal(t, 0, job.Result.Matched)
	assert.Equal(t, 2, job.Result.Unmatched)
}

func TestRunWithPinnedRuleNotFound(t *testing.T) {
	repo := storage.NewMockRepository()
	seedMock(repo)
	s := testService(repo)

	jobID, err := s.StartRun(context.Background(), RunRequest{RuleID: 99})
	require.NoError(t, err)

	job := waitForJob(t, s, jobID)
	require.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.Error.Error(), "rule not found")
}

func TestRunDefaultsOwnerFromConfig(t *testing.T) {
	repo := storage.NewMockRepository()
	seedMock(repo)
	seedRule(t, repo, "1")
	s := testService(repo)

	jobID, err := s.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)

	job := waitForJob(t, s, jobID)
	require.Equal(t, StatusCompleted, job.Status, "job error: %v", job.Error)
	require.Len(t, repo.Summaries, 1)
	assert.Equal(t, config.Default().Recon.DefaultOwner, repo.Summaries[0].AddedBy)
}

func TestRunLockReleasedAfterCompletion(t *testing.T) {
	repo := storage.NewMockRepository()
	seedMock(repo)
	seedRule(t, repo, "1")
	s := testService(repo)

	first, err := s.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	waitForJob(t, s, first)

	second, err := s.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	job := waitForJob(t, s, second)
	assert.Equal(t, StatusCompleted, job.Status)
}

func TestGetRunUnknownID(t *testing.T) {
	s := testService(storage.NewMockRepository())

	_, err := s.GetRun("nope")
	assert.Error(t, err)
}

func TestCancelRunUnknownID(t *testing.T) {
	s := testService(storage.NewMockRepository())

	err := s.CancelRun("nope")
	assert.Error(t, err)
}

func TestCancelFinishedRunRejected(t *testing.T) {
	repo := storage.NewMockRepository()
	seedMock(repo)
	seedRule(t, repo, "1")
	s := testService(repo)

	jobID, err := s.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	waitForJob(t, s, jobID)

	err = s.CancelRun(jobID)
	assert.Error(t, err)
}

func TestRunIgnoresRulesOfOtherOwners(t *testing.T) {
	repo := storage.NewMockRepository()
	seedMock(repo)
	seedRule(t, repo, "7")
	s := testService(repo)

	// Owner 42 has no rules, so the run must not borrow owner 7's rule.
	jobID, err := s.StartRun(context.Background(), RunRequest{Owner: 42})
	require.NoError(t, err)

	job := waitForJob(t, s, jobID)
	require.Equal(t, StatusCompleted, job.Status, "job error: %v", job.Error)
	assert.Equal(t, 0, job.Result.Matched)
	assert.Equal(t, 2, job.Result.Unmatched)

	// The rule's actual owner picks it up and matches.
	jobID, err = s.StartRun(context.Background(), RunRequest{Owner: 7})
	require.NoError(t, err)

	job = waitForJob(t, s, jobID)
	require.Equal(t, StatusCompleted, job.Status, "job error: %v", job.Error)
	assert.Equal(t, 1, job.Result.Matched)
}

func TestRunIgnoresRulesOfOtherCategories(t *testing.T) {
	repo := storage.NewMockRepository()
	seedMock(repo)
	seedRule(t, repo, "1")
	s := testService(repo)

	jobID, err := s.StartRun(context.Background(), RunRequest{Category: 9})
	require.NoError(t, err)

	job := waitForJob(t, s, jobID)
	require.Equal(t, StatusCompleted, job.Status, "job error: %v", job.Error)
	assert.Equal(t, 0, job.Result.Matched)
	assert.Equal(t, 2, job.Result.Unmatched)
}

// blockingRepo stalls feed loading until released or cancelled, so tests
// can cancel a run at a known point.
type blockingRepo struct {
	*storage.MockRepository
	started chan struct{}
	release chan struct{}
}

func (b *blockingRepo) LoadRecords(ctx context.Context, source recon.Source) ([]*recon.Record, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.MockRepository.LoadRecords(ctx, source)
}

func TestCancelledRunStaysCancelled(t *testing.T) {
	repo := &blockingRepo{
		MockRepository: storage.NewMockRepository(),
		started:        make(chan struct{}, 1),
		release:        make(chan struct{}),
	}
	seedMock(repo.MockRepository)
	seedRule(t, repo.MockRepository, "1")
	s := testService(repo)

	jobID, err := s.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)

	select {
	case <-repo.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run never reached feed loading")
	}
	require.NoError(t, s.CancelRun(jobID))
	close(repo.release)

	job := waitForJob(t, s, jobID)
	assert.Equal(t, StatusCancelled, job.Status)
	assert.NoError(t, job.Error, "a cancelled run must not be relabelled as failed")

	// The job goroutine must not flip the status back to running.
	assert.False(t, s.setPhase(jobID, "matching"))
	time.Sleep(20 * time.Millisecond)
	job, err = s.GetRun(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, job.Status)
	assert.False(t, repo.SaveSummaryCalled, "a cancelled run must not persist")
}

func TestDeleteRun(t *testing.T) {
	repo := storage.NewMockRepository()
	s := testService(repo)

	_, err := repo.SaveSummary(context.Background(), &storage.ReconSummary{Reference: "RECONAB010101"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRun(context.Background(), "RECONAB010101"))
	assert.True(t, repo.DeleteCalled)
	assert.Empty(t, repo.Summaries)
}
