package sim

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// reconcile applies every due transition for the identity before a
// read is served. Transitions mutate the in-memory collections first
// and are persisted once per collection at the end of the pass; a
// failed save leaves the previous durable state intact, and the next
// call re-attempts the same transitions from that snapshot.
func (s *Service) reconcile(ctx context.Context, identity string) error {
	now := s.now()

	reports, err := s.loadReports(ctx, identity)
	if err != nil {
		return err
	}
	rewards, err := s.loadRewards(ctx, identity)
	if err != nil {
		return err
	}
	payouts, err := s.loadPayouts(ctx, identity)
	if err != nil {
		return err
	}
	wallet, err := s.loadWallet(ctx, identity)
	if err != nil {
		return err
	}

	var reportsChanged, rewardsChanged, payoutsChanged, walletChanged bool

	for i := range reports {
		r := &reports[i]
		if r.Review == nil || r.Review.DueAt.After(now) {
			continue
		}
		final := r.Review.FinalStatus
		amount := r.Review.RewardAmount
		r.Status = final
		r.RewardAmount = amount
		r.Review = nil
		reportsChanged = true
		s.log.Info("report resolved", "report_id", r.ID, "status", final)

		// Grant keyed by report id against the collection being
		// mutated in this pass, so a second pass cannot re-credit.
		if final == ReportFineIssued && !hasRewardFor(rewards, r.ID) {
			rewards = append([]Reward{{
				ID:        uuid.NewString(),
				UserID:    identity,
				ReportID:  r.ID,
				Amount:    amount,
				Status:    RewardApproved,
				CreatedAt: now,
			}}, rewards...)
			wallet.Balance += amount
			wallet.UpdatedAt = now
			rewardsChanged = true
			walletChanged = true
			s.log.Info("reward granted", "report_id", r.ID, "amount", amount, "balance", wallet.Balance)
		}
	}

	for i := range payouts {
		p := &payouts[i]
		for p.Next != nil && !p.Next.DueAt.After(now) {
			due := p.Next.DueAt
			next := p.Next.Status
			p.Status = next
			p.Next = nil
			p.UpdatedAt = now
			payoutsChanged = true

			switch next {
			case PayoutProcessing:
				// Settlement counts from when processing started, not
				// from this read, so overdue chains collapse in one pass.
				p.Next = s.drawSettlement(due)
			case PayoutRejected:
				// Refund is tied to this transition, not to the
				// rejected state: once persisted it never re-fires.
				wallet.Balance += p.Amount
				wallet.UpdatedAt = now
				walletChanged = true
				s.log.Info("payout rejected, refunded", "payout_id", p.ID, "amount", p.Amount, "balance", wallet.Balance)
			case PayoutPaid:
				s.log.Info("payout paid", "payout_id", p.ID, "amount", p.Amount)
			}
		}
	}

	if reportsChanged {
		if err := s.saveSlot(ctx, kindReports, identity, reports); err != nil {
			return err
		}
	}
	if rewardsChanged {
		if err := s.saveSlot(ctx, kindRewards, identity, rewards); err != nil {
			return err
		}
	}
	if payoutsChanged {
		if err := s.saveSlot(ctx, kindPayouts, identity, payouts); err != nil {
			return err
		}
	}
	if walletChanged {
		if err := s.saveSlot(ctx, kindWallet, identity, wallet); err != nil {
			return err
		}
	}
	return nil
}

func hasRewardFor(rewards []Reward, reportID string) bool {
	for _, rw := range rewards {
		if rw.ReportID == reportID {
			return true
		}
	}
	return false
}

// NextDue reports the earliest pending due time for the identity, or
// false when nothing is scheduled. Used by the CLI watch loop.
func (s *Service) NextDue(ctx context.Context, identity string) (time.Time, bool, error) {
	reports, err := s.loadReports(ctx, identity)
	if err != nil {
		return time.Time{}, false, err
	}
	payouts, err := s.loadPayouts(ctx, identity)
	if err != nil {
		return time.Time{}, false, err
	}
	var due time.Time
	found := false
	consider := func(t time.Time) {
		if !found || t.Before(due) {
			due = t
			found = true
		}
	}
	for _, r := range reports {
		if r.Review != nil {
			consider(r.Review.DueAt)
		}
	}
	for _, p := range payouts {
		if p.Next != nil {
			consider(p.Next.DueAt)
		}
	}
	return due, found, nil
}
