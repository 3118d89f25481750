package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"microfin-office/internal/domain/loan"
	"microfin-office/internal/domain/member"
	"microfin-office/internal/pkg/apperrors"
)

// OverdueScanJob walks every active loan, flags loans with past-due unpaid
// installments as OVERDUE and keeps the member standing in sync.
type OverdueScanJob struct {
	loanRepo      loan.Repository
	loanService   loan.Service
	memberService member.Service
	logger        *slog.Logger
}

func NewOverdueScanJob(
	loanRepo loan.Repository,
	loanSvc loan.Service,
	memberSvc member.Service,
	logger *slog.Logger,
) *OverdueScanJob {
	if loanRepo == nil || loanSvc == nil || memberSvc == nil || logger == nil {
		panic("OverdueScanJob dependencies cannot be nil")
	}
	return &OverdueScanJob{
		loanRepo:      loanRepo,
		loanService:   loanSvc,
		memberService: memberSvc,
		logger:        logger.With("job", "OverdueScan"),
	}
}

func (j *OverdueScanJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting nightly overdue scan job.")

	j.logger.DebugContext(ctx, "Fetching active loan IDs from repository.")
	activeLoanIDs, err := j.loanRepo.GetAllActiveLoanIDs(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get active loan IDs, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get active loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched active loan IDs.", slog.Int("count", len(activeLoanIDs)))

	if len(activeLoanIDs) == 0 {
		j.logger.InfoContext(ctx, "No active loans found to process.")
		j.logger.InfoContext(ctx, "Overdue scan job finished.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	var wg sync.WaitGroup
	var processedCount, overdueCount, loansMarked, membersUpdated, errorCount atomic.Int32

	for _, loanID := range activeLoanIDs {
		wg.Add(1)
		go func(currentLoanID int64) {
			defer wg.Done()

			logCtx := j.logger.With(slog.Int64("loanID", currentLoanID))

			logCtx.DebugContext(ctx, "Checking loan overdue status.")
			isOverdue, checkErr := j.loanService.IsOverdue(ctx, currentLoanID)
			if checkErr != nil {
				if errors.Is(checkErr, apperrors.ErrNotFound) {
					logCtx.WarnContext(ctx, "Loan not found during overdue check (potentially deleted recently?)", slog.Any("error", checkErr))
				} else {
					logCtx.ErrorContext(ctx, "Failed to check loan overdue status", slog.Any("error", checkErr))
					errorCount.Add(1)
				}
				return
			}

			if isOverdue {
				overdueCount.Add(1)
				logCtx.InfoContext(ctx, "Marking loan overdue.")
				if markErr := j.loanService.MarkOverdue(ctx, currentLoanID); markErr != nil {
					logCtx.ErrorContext(ctx, "Failed to mark loan overdue", slog.Any("error", markErr))
					errorCount.Add(1)
					return
				}
				loansMarked.Add(1)
			}

			logCtx.DebugContext(ctx, "Finding member associated with loan.")
			memb, membErr := j.memberService.FindMemberByLoan(ctx, currentLoanID)
			if membErr != nil {
				if errors.Is(membErr, member.ErrNotFound) || errors.Is(membErr, apperrors.ErrNotFound) {
					logCtx.WarnContext(ctx, "No member found linked to this loan (data inconsistency?)", slog.Any("error", membErr))
				} else {
					logCtx.ErrorContext(ctx, "Failed to find member by loan", slog.Any("error", membErr))
					errorCount.Add(1)
				}
				return
			}
			logCtx = logCtx.With(slog.Int64("memberID", memb.MemberID))

			if memb.Overdue != isOverdue {
				logCtx.InfoContext(ctx, "Updating member overdue standing.", slog.Bool("new_status", isOverdue))
				updateErr := j.memberService.UpdateOverdueStanding(ctx, memb.MemberID, isOverdue)
				if updateErr != nil {
					logCtx.ErrorContext(ctx, "Failed to update member overdue standing", slog.Any("error", updateErr))
					errorCount.Add(1)
				} else {
					logCtx.InfoContext(ctx, "Member overdue standing updated successfully.", slog.Bool("status", isOverdue))
					membersUpdated.Add(1)
				}
			} else {
				logCtx.DebugContext(ctx, "Member overdue standing already correct.", slog.Bool("status", isOverdue))
			}
			processedCount.Add(1)

		}(loanID)
	}

	wg.Wait()
	duration := time.Since(startTime)
	summaryLog := j.logger.With(
		slog.Duration("duration", duration),
		slog.Int("total_active_loans", len(activeLoanIDs)),
		slog.Int("loans_processed", int(processedCount.Load())),
		slog.Int("loans_found_overdue", int(overdueCount.Load())),
		slog.Int("loans_marked_overdue", int(loansMarked.Load())),
		slog.Int("members_updated", int(membersUpdated.Load())),
		slog.Int("errors_encountered", int(errorCount.Load())),
	)
	if errorCount.Load() > 0 {
		summaryLog.WarnContext(ctx, "Overdue scan job finished with errors.")
		return fmt.Errorf("job completed with %d errors", errorCount.Load())
	}

	summaryLog.InfoContext(ctx, "Overdue scan job finished successfully.")
	return nil
}
