package sim

import (
	"context"
	"fmt"
	"strings"
)

// GetReferralInfo returns the identity's referral record, creating it
// lazily on first access. The referral code is the identity itself.
func (s *Service) GetReferralInfo(ctx context.Context, identity string) (ReferralInfo, error) {
	return s.loadReferralInfo(ctx, identity)
}

// RecordReferralVisit notes that someone arrived via a referral link.
// The marker is a single global slot: last write wins, and only one
// outstanding referral is tracked at a time.
func (s *Service) RecordReferralVisit(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: referral code is required", ErrValidation)
	}
	return s.saveSlot(ctx, kindRefVisit, "", pendingReferral{
		Code:      code,
		VisitedAt: s.now(),
	})
}

// ApplyPendingReferral consumes the pending marker after the invited
// identity completes signup. The marker is cleared before the outcome
// is decided, so it is consumed exactly once whether the credit is
// applied or discarded.
func (s *Service) ApplyPendingReferral(ctx context.Context, identity string) (ReferralResult, error) {
	raw, ok, err := s.store.Load(ctx, kindRefVisit, "")
	if err != nil {
		return ReferralResult{}, fmt.Errorf("load %s: %w", kindRefVisit, err)
	}
	if !ok {
		return ReferralResult{Applied: false}, nil
	}
	var marker pendingReferral
	if err := decodeSlot(raw, kindRefVisit, &marker); err != nil {
		return ReferralResult{}, err
	}
	if err := s.store.Delete(ctx, kindRefVisit, ""); err != nil {
		return ReferralResult{}, fmt.Errorf("clear %s: %w", kindRefVisit, err)
	}
	referrer := strings.TrimSpace(marker.Code)
	if referrer == "" {
		return ReferralResult{Applied: false}, nil
	}
	if referrer == identity {
		return ReferralResult{Applied: false, Message: "self referral ignored"}, nil
	}

	// The referrer's entities are keyed by the referrer's identity,
	// not the caller's.
	info, err := s.loadReferralInfo(ctx, referrer)
	if err != nil {
		return ReferralResult{}, err
	}
	for _, inv := range info.Invites {
		if inv.UserID == identity {
			return ReferralResult{Applied: false, Message: "referral already applied"}, nil
		}
	}

	now := s.now()
	info.Invites = append(info.Invites, ReferralInvite{UserID: identity, AcceptedAt: now})
	info.BonusTotal += ReferralBonus

	wallet, err := s.loadWallet(ctx, referrer)
	if err != nil {
		return ReferralResult{}, err
	}
	wallet.Balance += ReferralBonus
	wallet.UpdatedAt = now

	if err := s.saveSlot(ctx, kindRefInfo, referrer, info); err != nil {
		return ReferralResult{}, err
	}
	if err := s.saveSlot(ctx, kindWallet, referrer, wallet); err != nil {
		return ReferralResult{}, err
	}
	s.log.Info("referral applied", "referrer", referrer, "invited", identity, "bonus", ReferralBonus)
	return ReferralResult{Applied: true, Message: fmt.Sprintf("referral bonus of %d credited to %s", ReferralBonus, referrer)}, nil
}
