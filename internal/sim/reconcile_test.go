package sim

import (
	"context"
	"testing"
	"time"
)

func advancePastReview(clock *testClock) {
	clock.Advance(time.Duration(MaxReviewDelaySec+1) * time.Second)
}

func advancePastQueue(clock *testClock) {
	clock.Advance(time.Duration(MaxQueueDelaySec+1) * time.Second)
}

func advancePastSettle(clock *testClock) {
	clock.Advance(time.Duration(MaxSettleDelaySec+1) * time.Second)
}

func TestAcceptedReportGrantsRewardOnce(t *testing.T) {
	svc, clock := newTestService(acceptSource)
	ctx := context.Background()
	created := mustCreateReport(t, svc, "user_1")

	// Not due yet: reads must not move anything.
	summary, err := svc.GetWallet(ctx, "user_1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if summary.Wallet.Balance != 0 || len(summary.PendingRewards) != 0 {
		t.Fatalf("nothing should change before the due time, got %+v", summary)
	}

	advancePastReview(clock)

	report, err := svc.GetReport(ctx, "user_1", created.ID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if report.Status != ReportFineIssued {
		t.Fatalf("expected fine_issued after due time, got %s", report.Status)
	}
	if report.RewardAmount < MinRewardAmount || report.RewardAmount > MaxRewardAmount {
		t.Fatalf("reward %d outside [%d, %d]", report.RewardAmount, MinRewardAmount, MaxRewardAmount)
	}

	summary, err = svc.GetWallet(ctx, "user_1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if len(summary.PendingRewards) != 1 {
		t.Fatalf("expected exactly one reward, got %d", len(summary.PendingRewards))
	}
	rw := summary.PendingRewards[0]
	if rw.ReportID != created.ID {
		t.Fatalf("reward keyed to wrong report: %s", rw.ReportID)
	}
	if rw.Amount != report.RewardAmount {
		t.Fatalf("reward amount %d does not match report %d", rw.Amount, report.RewardAmount)
	}
	if summary.Wallet.Balance != rw.Amount {
		t.Fatalf("wallet balance %d, want %d", summary.Wallet.Balance, rw.Amount)
	}

	// Any number of further reads is a no-op.
	for i := 0; i < 3; i++ {
		summary, err = svc.GetWallet(ctx, "user_1")
		if err != nil {
			t.Fatalf("get wallet: %v", err)
		}
	}
	if len(summary.PendingRewards) != 1 || summary.Wallet.Balance != rw.Amount {
		t.Fatalf("repeat reads re-credited: %d rewards, balance %d", len(summary.PendingRewards), summary.Wallet.Balance)
	}
}

func TestRejectedReportGrantsNothing(t *testing.T) {
	svc, clock := newTestService(rejectSource)
	ctx := context.Background()
	created := mustCreateReport(t, svc, "user_1")
	advancePastReview(clock)

	report, err := svc.GetReport(ctx, "user_1", created.ID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if report.Status != ReportRejected {
		t.Fatalf("expected rejected, got %s", report.Status)
	}
	if report.RewardAmount != 0 {
		t.Fatalf("rejected report must not carry a reward, got %d", report.RewardAmount)
	}

	summary, err := svc.GetWallet(ctx, "user_1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if summary.Wallet.Balance != 0 || len(summary.PendingRewards) != 0 {
		t.Fatalf("rejected report changed the wallet: %+v", summary)
	}
}

func TestResolvedViewDropsSchedule(t *testing.T) {
	svc, clock := newTestService(acceptSource)
	ctx := context.Background()
	mustCreateReport(t, svc, "user_1")
	advancePastReview(clock)

	if _, err := svc.ListReports(ctx, "user_1", ""); err != nil {
		t.Fatalf("list: %v", err)
	}
	reports, err := svc.loadReports(ctx, "user_1")
	if err != nil {
		t.Fatalf("load reports: %v", err)
	}
	if reports[0].Review != nil {
		t.Fatalf("resolved report still carries a pending review")
	}
}

func TestPayoutPaidPath(t *testing.T) {
	svc, clock := newTestService(acceptSource)
	ctx := context.Background()
	creditWallet(t, svc, "user_1", 600)

	res, err := svc.RequestPayout(ctx, "user_1", 600)
	if err != nil {
		t.Fatalf("request payout: %v", err)
	}

	advancePastQueue(clock)
	summary, err := svc.GetWallet(ctx, "user_1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if got := summary.PayoutRequests[0].Status; got != PayoutProcessing {
		t.Fatalf("expected processing after queue delay, got %s", got)
	}

	advancePastSettle(clock)
	summary, err = svc.GetWallet(ctx, "user_1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	p := summary.PayoutRequests[0]
	if p.ID != res.Payout.ID {
		t.Fatalf("unexpected payout %s", p.ID)
	}
	if p.Status != PayoutPaid {
		t.Fatalf("expected paid, got %s", p.Status)
	}
	if summary.Wallet.Balance != 0 {
		t.Fatalf("paid payout must not refund, balance %d", summary.Wallet.Balance)
	}
}

func TestPayoutChainsToPaidInOneRead(t *testing.T) {
	svc, clock := newTestService(acceptSource)
	ctx := context.Background()
	creditWallet(t, svc, "user_1", 600)

	if _, err := svc.RequestPayout(ctx, "user_1", 600); err != nil {
		t.Fatalf("request payout: %v", err)
	}

	// Settlement is scheduled from the processing step's due time, so
	// when both delays have elapsed a single read reaches the terminal
	// state without an intermediate read at the processing stage.
	clock.Advance(time.Duration(MaxQueueDelaySec+MaxSettleDelaySec+2) * time.Second)

	summary, err := svc.GetWallet(ctx, "user_1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if got := summary.PayoutRequests[0].Status; got != PayoutPaid {
		t.Fatalf("expected paid after one read, got %s", got)
	}
	if summary.Wallet.Balance != 0 {
		t.Fatalf("paid payout must not refund, balance %d", summary.Wallet.Balance)
	}
}

func TestPayoutRejectedRefundsOnce(t *testing.T) {
	svc, clock := newTestService(bounceSource)
	ctx := context.Background()
	creditWallet(t, svc, "user_1", 600)

	if _, err := svc.RequestPayout(ctx, "user_1", 600); err != nil {
		t.Fatalf("request payout: %v", err)
	}

	// One long jump: both queue and settlement come due, and a single
	// read must chain created -> processing -> rejected.
	clock.Advance(time.Duration(MaxQueueDelaySec+MaxSettleDelaySec+2) * time.Second)

	summary, err := svc.GetWallet(ctx, "user_1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if got := summary.PayoutRequests[0].Status; got != PayoutRejected {
		t.Fatalf("expected rejected, got %s", got)
	}
	if summary.Wallet.Balance != 600 {
		t.Fatalf("expected full refund, balance %d", summary.Wallet.Balance)
	}

	for i := 0; i < 3; i++ {
		summary, err = svc.GetWallet(ctx, "user_1")
		if err != nil {
			t.Fatalf("get wallet: %v", err)
		}
	}
	if summary.Wallet.Balance != 600 {
		t.Fatalf("refund re-fired on repeat reads, balance %d", summary.Wallet.Balance)
	}
}

func TestReportLifecycleEndToEnd(t *testing.T) {
	svc, clock := newTestService(acceptSource)
	ctx := context.Background()

	created, err := svc.CreateReport(ctx, "user_1", CreateReportInput{
		ViolationType: "sidewalk",
		Confidence:    0.8,
		Coordinates:   "52.52,13.40",
		EvidenceURL:   "https://cdn.example.com/evidence/42.jpg",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	if created.Status != ReportUnderReview {
		t.Fatalf("expected under_review, got %s", created.Status)
	}

	advancePastReview(clock)

	reports, err := svc.ListReports(ctx, "user_1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	final := reports[0]
	if final.Status != ReportFineIssued && final.Status != ReportRejected {
		t.Fatalf("expected a terminal status, got %s", final.Status)
	}

	summary, err := svc.GetWallet(ctx, "user_1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if final.Status == ReportFineIssued {
		if len(summary.PendingRewards) != 1 || summary.Wallet.Balance != final.RewardAmount {
			t.Fatalf("accepted report must credit once: %+v", summary)
		}
	} else if len(summary.PendingRewards) != 0 || summary.Wallet.Balance != 0 {
		t.Fatalf("rejected report must credit nothing: %+v", summary)
	}
}

func TestNextDueTracksEarliestSchedule(t *testing.T) {
	svc, clock := newTestService(acceptSource)
	ctx := context.Background()

	if _, found, err := svc.NextDue(ctx, "user_1"); err != nil || found {
		t.Fatalf("expected nothing scheduled, found=%v err=%v", found, err)
	}

	mustCreateReport(t, svc, "user_1")
	due, found, err := svc.NextDue(ctx, "user_1")
	if err != nil || !found {
		t.Fatalf("expected a schedule, found=%v err=%v", found, err)
	}
	if !due.After(clock.Now()) {
		t.Fatalf("due time %s not in the future of %s", due, clock.Now())
	}

	advancePastReview(clock)
	if _, err := svc.ListReports(ctx, "user_1", ""); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, found, err := svc.NextDue(ctx, "user_1"); err != nil || found {
		t.Fatalf("resolved schedule must clear, found=%v err=%v", found, err)
	}
}
