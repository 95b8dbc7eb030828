package sim

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Report review: outcome and reward are drawn once at creation.
	AcceptProbability = 0.65
	MinRewardAmount   = int64(150)
	MaxRewardAmount   = int64(400)
	MinReviewDelaySec = 30
	MaxReviewDelaySec = 120

	// Payout progression.
	PayoutPaidProbability = 0.90
	MinQueueDelaySec      = 3
	MaxQueueDelaySec      = 8
	MinSettleDelaySec     = 20
	MaxSettleDelaySec     = 90

	ReferralBonus = int64(100)
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrValidation        = errors.New("validation failed")
)

var violationTypes = map[string]struct{}{
	"sidewalk":         {},
	"wrongparking":     {},
	"trafficviolation": {},
	"helmetmissing":    {},
}

func ValidateViolationType(v string) error {
	if _, ok := violationTypes[strings.ToLower(strings.TrimSpace(v))]; !ok {
		return fmt.Errorf("%w: unknown violation type %q", ErrValidation, v)
	}
	return nil
}

func ViolationTypes() []string {
	return []string{"sidewalk", "wrongparking", "trafficviolation", "helmetmissing"}
}

func validateCreateReport(in CreateReportInput) error {
	if err := ValidateViolationType(in.ViolationType); err != nil {
		return err
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be within [0,1]", ErrValidation)
	}
	if strings.TrimSpace(in.EvidenceURL) == "" {
		return fmt.Errorf("%w: evidence url is required", ErrValidation)
	}
	return nil
}
