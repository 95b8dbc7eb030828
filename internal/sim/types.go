package sim

import "time"

type ReportStatus string

const (
	ReportSubmitted   ReportStatus = "submitted"
	ReportUnderReview ReportStatus = "under_review"
	ReportFineIssued  ReportStatus = "fine_issued"
	ReportRejected    ReportStatus = "rejected"
)

type RewardStatus string

const (
	RewardPending  RewardStatus = "pending"
	RewardApproved RewardStatus = "approved"
	RewardPaid     RewardStatus = "paid"
)

type PayoutStatus string

const (
	PayoutCreated    PayoutStatus = "created"
	PayoutProcessing PayoutStatus = "processing"
	PayoutPaid       PayoutStatus = "paid"
	PayoutRejected   PayoutStatus = "rejected"
)

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
)

// pendingReview is the transition scheduled for a report at creation
// time: the die is rolled once and time merely reveals the outcome.
// Present iff the report is still under review; never shown to callers.
type pendingReview struct {
	FinalStatus  ReportStatus `json:"final_status"`
	RewardAmount int64        `json:"reward_amount,omitempty"`
	DueAt        time.Time    `json:"due_at"`
}

// pendingPayoutStep drives a payout request's automatic progression.
type pendingPayoutStep struct {
	Status PayoutStatus `json:"status"`
	DueAt  time.Time    `json:"due_at"`
}

type Evidence struct {
	ID       string `json:"id"`
	ReportID string `json:"report_id"`
	Kind     string `json:"kind"`
	URL      string `json:"url"`
}

// Report is the stored form; Review is internal scheduling state and
// is stripped from ReportView before anything leaves the package.
type Report struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	ViolationType string         `json:"violation_type"`
	Status        ReportStatus   `json:"status"`
	Confidence    float64        `json:"confidence"`
	Coordinates   string         `json:"coordinates,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	RewardAmount  int64          `json:"reward_amount,omitempty"`
	Evidence      []Evidence     `json:"evidence,omitempty"`
	Review        *pendingReview `json:"review,omitempty"`
}

type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Reward struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	ReportID  string       `json:"report_id"`
	Amount    int64        `json:"amount"`
	Status    RewardStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

type PayoutRequest struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Amount    int64              `json:"amount"`
	Status    PayoutStatus       `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Next      *pendingPayoutStep `json:"next,omitempty"`
}

type SupportTicket struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Subject   string       `json:"subject"`
	Body      string       `json:"body"`
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type ReferralInvite struct {
	UserID     string    `json:"user_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

type ReferralInfo struct {
	Code       string           `json:"code"`
	Invites    []ReferralInvite `json:"invites"`
	BonusTotal int64            `json:"bonus_total"`
}

// pendingReferral is the single global "arrived via referral link"
// marker. Last write wins; consumed exactly once at signup.
type pendingReferral struct {
	Code      string    `json:"code"`
	VisitedAt time.Time `json:"visited_at"`
}

// ReportView is the externally visible projection of a report.
type ReportView struct {
	ID            string       `json:"id"`
	ViolationType string       `json:"violation_type"`
	Status        ReportStatus `json:"status"`
	Confidence    float64      `json:"confidence"`
	Coordinates   string       `json:"coordinates,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	RewardAmount  int64        `json:"reward_amount,omitempty"`
	Evidence      []Evidence   `json:"evidence,omitempty"`
}

type PayoutView struct {
	ID        string       `json:"id"`
	Amount    int64        `json:"amount"`
	Status    PayoutStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// WalletSummary is the wallet read model: balance plus reward and
// payout history, already reconciled.
type WalletSummary struct {
	Wallet         Wallet       `json:"wallet"`
	PendingRewards []Reward     `json:"pending_rewards"`
	PayoutRequests []PayoutView `json:"payout_requests"`
}

type CreateReportInput struct {
	ViolationType string
	Confidence    float64
	Coordinates   string
	EvidenceURL   string
}

type PayoutResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Payout  PayoutView
}

type ReferralResult struct {
	Applied bool   `json:"applied"`
	Message string `json:"message,omitempty"`
}

func (r Report) view() ReportView {
	return ReportView{
		ID:            r.ID,
		ViolationType: r.ViolationType,
		Status:        r.Status,
		Confidence:    r.Confidence,
		Coordinates:   r.Coordinates,
		CreatedAt:     r.CreatedAt,
		RewardAmount:  r.RewardAmount,
		Evidence:      r.Evidence,
	}
}

func (p PayoutRequest) view() PayoutView {
	return PayoutView{
		ID:        p.ID,
		Amount:    p.Amount,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
