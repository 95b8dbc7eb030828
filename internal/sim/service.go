// Package sim fakes the moderation and payment backend of the
// reporting app. There is no scheduler process: every entity carries
// its own next transition and due time, and each read applies whatever
// has become due before returning data.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"scootwatch/internal/store"
)

const (
	kindReports = "reports"
	kindRewards = "rewards"
	kindPayouts = "payouts"
	kindTickets = "tickets"
	kindWallet  = "wallet"
	kindRefInfo = "referral"

	// Single unscoped slot recording "arrived via referral link".
	kindRefVisit = "referral_visit"
)

type Service struct {
	store store.Store
	log   *slog.Logger
	rand  *mathrand.Rand
	now   func() time.Time
}

func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: st,
		log:   logger,
		rand:  mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// EnsureWallet seeds the identity's wallet on first login. Safe to
// call repeatedly; the seed is persisted on first access so later
// reads from any process observe identical state.
func (s *Service) EnsureWallet(ctx context.Context, identity string) error {
	_, err := s.loadWallet(ctx, identity)
	return err
}

func (s *Service) ListReports(ctx context.Context, identity string, statusFilter ReportStatus) ([]ReportView, error) {
	if err := s.reconcile(ctx, identity); err != nil {
		return nil, err
	}
	reports, err := s.loadReports(ctx, identity)
	if err != nil {
		return nil, err
	}
	out := make([]ReportView, 0, len(reports))
	for _, r := range reports {
		if statusFilter != "" && r.Status != statusFilter {
			continue
		}
		out = append(out, r.view())
	}
	return out, nil
}

func (s *Service) GetReport(ctx context.Context, identity, id string) (ReportView, error) {
	if err := s.reconcile(ctx, identity); err != nil {
		return ReportView{}, err
	}
	reports, err := s.loadReports(ctx, identity)
	if err != nil {
		return ReportView{}, err
	}
	for _, r := range reports {
		if r.ID == id {
			return r.view(), nil
		}
	}
	return ReportView{}, fmt.Errorf("report %s: %w", id, ErrNotFound)
}

// CreateReport stores the report already under review, with its final
// outcome, reward, and due time drawn up front. Time only reveals the
// result; nothing is re-rolled at resolution.
func (s *Service) CreateReport(ctx context.Context, identity string, in CreateReportInput) (ReportView, error) {
	if err := validateCreateReport(in); err != nil {
		return ReportView{}, err
	}
	reports, err := s.loadReports(ctx, identity)
	if err != nil {
		return ReportView{}, err
	}

	now := s.now()
	report := Report{
		ID:            uuid.NewString(),
		UserID:        identity,
		ViolationType: strings.ToLower(strings.TrimSpace(in.ViolationType)),
		Status:        ReportUnderReview,
		Confidence:    in.Confidence,
		Coordinates:   strings.TrimSpace(in.Coordinates),
		CreatedAt:     now,
		Review:        s.drawReview(now),
	}
	report.Evidence = []Evidence{{
		ID:       uuid.NewString(),
		ReportID: report.ID,
		Kind:     "photo",
		URL:      strings.TrimSpace(in.EvidenceURL),
	}}

	reports = append([]Report{report}, reports...)
	if err := s.saveSlot(ctx, kindReports, identity, reports); err != nil {
		return ReportView{}, err
	}
	s.log.Info("report created",
		"report_id", report.ID,
		"violation_type", report.ViolationType,
		"outcome", report.Review.FinalStatus,
		"due_at", report.Review.DueAt,
	)
	return report.view(), nil
}

func (s *Service) GetWallet(ctx context.Context, identity string) (WalletSummary, error) {
	if err := s.reconcile(ctx, identity); err != nil {
		return WalletSummary{}, err
	}
	wallet, err := s.loadWallet(ctx, identity)
	if err != nil {
		return WalletSummary{}, err
	}
	rewards, err := s.loadRewards(ctx, identity)
	if err != nil {
		return WalletSummary{}, err
	}
	payouts, err := s.loadPayouts(ctx, identity)
	if err != nil {
		return WalletSummary{}, err
	}
	out := WalletSummary{
		Wallet:         wallet,
		PendingRewards: rewards,
		PayoutRequests: make([]PayoutView, 0, len(payouts)),
	}
	for _, p := range payouts {
		out.PayoutRequests = append(out.PayoutRequests, p.view())
	}
	return out, nil
}

// RequestPayout debits the wallet optimistically and schedules the
// request's automatic progression. A later rejected settlement refunds
// the debit in the same reconciliation step that flips the status.
func (s *Service) RequestPayout(ctx context.Context, identity string, amount int64) (PayoutResult, error) {
	if err := s.reconcile(ctx, identity); err != nil {
		return PayoutResult{}, err
	}
	if amount <= 0 {
		return PayoutResult{Message: "amount must be positive"}, ErrInvalidAmount
	}
	wallet, err := s.loadWallet(ctx, identity)
	if err != nil {
		return PayoutResult{}, err
	}
	if amount > wallet.Balance {
		return PayoutResult{Message: "balance too low for this payout"}, ErrInsufficientFunds
	}
	payouts, err := s.loadPayouts(ctx, identity)
	if err != nil {
		return PayoutResult{}, err
	}

	now := s.now()
	payout := PayoutRequest{
		ID:        uuid.NewString(),
		UserID:    identity,
		Amount:    amount,
		Status:    PayoutCreated,
		CreatedAt: now,
		UpdatedAt: now,
		Next: &pendingPayoutStep{
			Status: PayoutProcessing,
			DueAt:  now.Add(s.drawDelay(MinQueueDelaySec, MaxQueueDelaySec)),
		},
	}
	payouts = append([]PayoutRequest{payout}, payouts...)
	wallet.Balance -= amount
	wallet.UpdatedAt = now

	if err := s.saveSlot(ctx, kindPayouts, identity, payouts); err != nil {
		return PayoutResult{}, err
	}
	if err := s.saveSlot(ctx, kindWallet, identity, wallet); err != nil {
		return PayoutResult{}, err
	}
	s.log.Info("payout requested", "payout_id", payout.ID, "amount", amount, "balance", wallet.Balance)
	return PayoutResult{
		Success: true,
		Message: fmt.Sprintf("payout of %d accepted", amount),
		Payout:  payout.view(),
	}, nil
}

func (s *Service) ListSupportTickets(ctx context.Context, identity string) ([]SupportTicket, error) {
	return s.loadTickets(ctx, identity)
}

func (s *Service) CreateSupportTicket(ctx context.Context, identity, subject, body string) (SupportTicket, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" {
		return SupportTicket{}, fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if body == "" {
		return SupportTicket{}, fmt.Errorf("%w: message is required", ErrValidation)
	}
	tickets, err := s.loadTickets(ctx, identity)
	if err != nil {
		return SupportTicket{}, err
	}
	now := s.now()
	ticket := SupportTicket{
		ID:        uuid.NewString(),
		UserID:    identity,
		Subject:   subject,
		Body:      body,
		Status:    TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tickets = append([]SupportTicket{ticket}, tickets...)
	if err := s.saveSlot(ctx, kindTickets, identity, tickets); err != nil {
		return SupportTicket{}, err
	}
	return ticket, nil
}

// ResetAccount deletes every slot owned by the identity, returning the
// account to its pre-seed state. The global referral marker is left
// alone; it belongs to whoever signs up next.
func (s *Service) ResetAccount(ctx context.Context, identity string) error {
	for _, kind := range []string{kindReports, kindRewards, kindPayouts, kindTickets, kindWallet, kindRefInfo} {
		if err := s.store.Delete(ctx, kind, identity); err != nil {
			return fmt.Errorf("delete %s/%s: %w", kind, identity, err)
		}
	}
	s.log.Info("account reset", "identity", identity)
	return nil
}

// drawReview decides a report's fate at creation: one Bernoulli draw
// for acceptance, one uniform reward amount, one uniform delay.
func (s *Service) drawReview(now time.Time) *pendingReview {
	rv := &pendingReview{
		FinalStatus: ReportRejected,
		DueAt:       now.Add(s.drawDelay(MinReviewDelaySec, MaxReviewDelaySec)),
	}
	if s.rand.Float64() < AcceptProbability {
		rv.FinalStatus = ReportFineIssued
		rv.RewardAmount = MinRewardAmount + s.rand.Int63n(MaxRewardAmount-MinRewardAmount+1)
	}
	return rv
}

func (s *Service) drawSettlement(from time.Time) *pendingPayoutStep {
	next := &pendingPayoutStep{
		Status: PayoutRejected,
		DueAt:  from.Add(s.drawDelay(MinSettleDelaySec, MaxSettleDelaySec)),
	}
	if s.rand.Float64() < PayoutPaidProbability {
		next.Status = PayoutPaid
	}
	return next
}

func (s *Service) drawDelay(minSec, maxSec int) time.Duration {
	return time.Duration(minSec+s.rand.Intn(maxSec-minSec+1)) * time.Second
}

func (s *Service) loadReports(ctx context.Context, identity string) ([]Report, error) {
	return loadSeeded(ctx, s, kindReports, identity, func() []Report { return []Report{} })
}

func (s *Service) loadRewards(ctx context.Context, identity string) ([]Reward, error) {
	return loadSeeded(ctx, s, kindRewards, identity, func() []Reward { return []Reward{} })
}

func (s *Service) loadPayouts(ctx context.Context, identity string) ([]PayoutRequest, error) {
	return loadSeeded(ctx, s, kindPayouts, identity, func() []PayoutRequest { return []PayoutRequest{} })
}

func (s *Service) loadTickets(ctx context.Context, identity string) ([]SupportTicket, error) {
	return loadSeeded(ctx, s, kindTickets, identity, func() []SupportTicket { return []SupportTicket{} })
}

func (s *Service) loadWallet(ctx context.Context, identity string) (Wallet, error) {
	return loadSeeded(ctx, s, kindWallet, identity, func() Wallet {
		return Wallet{
			ID:        uuid.NewString(),
			UserID:    identity,
			Balance:   0,
			UpdatedAt: s.now(),
		}
	})
}

func (s *Service) loadReferralInfo(ctx context.Context, identity string) (ReferralInfo, error) {
	return loadSeeded(ctx, s, kindRefInfo, identity, func() ReferralInfo {
		return ReferralInfo{Code: identity, Invites: []ReferralInvite{}}
	})
}

// loadSeeded reads a slot, materializing and persisting the seed value
// on first access so repeated loads before any write agree.
func loadSeeded[T any](ctx context.Context, s *Service, kind, identity string, seed func() T) (T, error) {
	var out T
	raw, ok, err := s.store.Load(ctx, kind, identity)
	if err != nil {
		return out, fmt.Errorf("load %s/%s: %w", kind, identity, err)
	}
	if !ok {
		out = seed()
		if err := s.saveSlot(ctx, kind, identity, out); err != nil {
			return out, err
		}
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s/%s: %w", kind, identity, err)
	}
	return out, nil
}

func (s *Service) saveSlot(ctx context.Context, kind, identity string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, identity, err)
	}
	if err := s.store.Save(ctx, kind, identity, raw); err != nil {
		return fmt.Errorf("save %s/%s: %w", kind, identity, err)
	}
	return nil
}

func decodeSlot(raw []byte, kind string, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}
