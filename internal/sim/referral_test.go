package sim

import (
	"context"
	"errors"
	"testing"
)

func TestReferralInfoSeedsWithIdentityCode(t *testing.T) {
	svc, _ := newTestService(acceptSource)
	ctx := context.Background()

	info, err := svc.GetReferralInfo(ctx, "user_111")
	if err != nil {
		t.Fatalf("get referral info: %v", err)
	}
	if info.Code != "user_111" {
		t.Fatalf("expected code user_111, got %s", info.Code)
	}
	if len(info.Invites) != 0 || info.BonusTotal != 0 {
		t.Fatalf("fresh referral record must be empty, got %+v", info)
	}
}

func TestRecordReferralVisitRequiresCode(t *testing.T) {
	svc, _ := newTestService(acceptSource)
	if err := svc.RecordReferralVisit(context.Background(), "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestApplyPendingReferralCreditsReferrerOnce(t *testing.T) {
	svc, _ := newTestService(acceptSource)
	ctx := context.Background()

	if err := svc.RecordReferralVisit(ctx, "user_111"); err != nil {
		t.Fatalf("record visit: %v", err)
	}

	res, err := svc.ApplyPendingReferral(ctx, "user_222")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !res.Applied {
		t.Fatalf("expected referral to apply, got %+v", res)
	}

	info, err := svc.GetReferralInfo(ctx, "user_111")
	if err != nil {
		t.Fatalf("get referral info: %v", err)
	}
	if len(info.Invites) != 1 || info.Invites[0].UserID != "user_222" {
		t.Fatalf("expected one invite for user_222, got %+v", info.Invites)
	}
	if info.BonusTotal != ReferralBonus {
		t.Fatalf("expected bonus total %d, got %d", ReferralBonus, info.BonusTotal)
	}

	wallet, err := svc.loadWallet(ctx, "user_111")
	if err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	if wallet.Balance != ReferralBonus {
		t.Fatalf("expected referrer balance %d, got %d", ReferralBonus, wallet.Balance)
	}

	// The marker is consumed: a second signup finds nothing.
	res, err = svc.ApplyPendingReferral(ctx, "user_333")
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if res.Applied {
		t.Fatalf("consumed marker must not apply again")
	}
	wallet, err = svc.loadWallet(ctx, "user_111")
	if err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	if wallet.Balance != ReferralBonus {
		t.Fatalf("second apply changed the balance: %d", wallet.Balance)
	}
}

func TestApplyPendingReferralIgnoresSelf(t *testing.T) {
	svc, _ := newTestService(acceptSource)
	ctx := context.Background()

	if err := svc.RecordReferralVisit(ctx, "user_111"); err != nil {
		t.Fatalf("record visit: %v", err)
	}
	res, err := svc.ApplyPendingReferral(ctx, "user_111")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Applied {
		t.Fatalf("self referral must not apply")
	}

	wallet, err := svc.loadWallet(ctx, "user_111")
	if err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	if wallet.Balance != 0 {
		t.Fatalf("self referral credited the wallet: %d", wallet.Balance)
	}

	// Even a discarded marker is consumed.
	res, err = svc.ApplyPendingReferral(ctx, "user_222")
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if res.Applied {
		t.Fatalf("discarded marker must not survive for another signup")
	}
}

func TestApplyPendingReferralSkipsDuplicateInvite(t *testing.T) {
	svc, _ := newTestService(acceptSource)
	ctx := context.Background()

	if err := svc.RecordReferralVisit(ctx, "user_111"); err != nil {
		t.Fatalf("record visit: %v", err)
	}
	if res, err := svc.ApplyPendingReferral(ctx, "user_222"); err != nil || !res.Applied {
		t.Fatalf("first apply: applied=%v err=%v", res.Applied, err)
	}

	// Same invitee visits the same link again and logs in again.
	if err := svc.RecordReferralVisit(ctx, "user_111"); err != nil {
		t.Fatalf("record visit: %v", err)
	}
	res, err := svc.ApplyPendingReferral(ctx, "user_222")
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if res.Applied {
		t.Fatalf("replayed invite must not apply")
	}

	info, err := svc.GetReferralInfo(ctx, "user_111")
	if err != nil {
		t.Fatalf("get referral info: %v", err)
	}
	if len(info.Invites) != 1 || info.BonusTotal != ReferralBonus {
		t.Fatalf("duplicate invite changed the record: %+v", info)
	}
	wallet, err := svc.loadWallet(ctx, "user_111")
	if err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	if wallet.Balance != ReferralBonus {
		t.Fatalf("duplicate invite changed the balance: %d", wallet.Balance)
	}
}

func TestApplyPendingReferralWithoutMarker(t *testing.T) {
	svc, _ := newTestService(acceptSource)
	res, err := svc.ApplyPendingReferral(context.Background(), "user_222")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Applied {
		t.Fatalf("no marker must mean no referral")
	}
}

func TestRecordReferralVisitLastWriteWins(t *testing.T) {
	svc, _ := newTestService(acceptSource)
	ctx := context.Background()

	if err := svc.RecordReferralVisit(ctx, "user_111"); err != nil {
		t.Fatalf("record visit: %v", err)
	}
	if err := svc.RecordReferralVisit(ctx, "user_999"); err != nil {
		t.Fatalf("record visit: %v", err)
	}

	if res, err := svc.ApplyPendingReferral(ctx, "user_222"); err != nil || !res.Applied {
		t.Fatalf("apply: applied=%v err=%v", res.Applied, err)
	}

	first, err := svc.GetReferralInfo(ctx, "user_111")
	if err != nil {
		t.Fatalf("get referral info: %v", err)
	}
	if len(first.Invites) != 0 {
		t.Fatalf("overwritten referrer must not be credited: %+v", first)
	}
	second, err := svc.GetReferralInfo(ctx, "user_999")
	if err != nil {
		t.Fatalf("get referral info: %v", err)
	}
	if len(second.Invites) != 1 || second.BonusTotal != ReferralBonus {
		t.Fatalf("latest referrer must be credited: %+v", second)
	}
}
