package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mdp/qrterminal/v3"

	"scootwatch/internal/sim"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptFloatRange(label string, min, max float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v < min || v > max {
			printWarn(fmt.Sprintf("Value must be within [%.2f, %.2f]", min, max))
			continue
		}
		return v, nil
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderReports(reports []sim.ReportView) {
	accent.Println("\n== REPORTS ==")
	if len(reports) == 0 {
		printInfo("No reports yet.")
		return
	}
	fmt.Printf("%-10s %-18s %-14s %6s %8s %-16s\n", "ID", "VIOLATION", "STATUS", "CONF", "REWARD", "CREATED")
	for _, r := range reports {
		fmt.Printf("%-10s %-18s %-14s %5.0f%% %8s %-16s\n",
			shortID(r.ID),
			truncate(r.ViolationType, 18),
			colorizeReportStatus(r.Status),
			r.Confidence*100,
			formatReward(r.RewardAmount),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	fmt.Println()
}

func renderReportDetail(r sim.ReportView) {
	accent.Printf("\n== REPORT %s ==\n", shortID(r.ID))
	fmt.Printf("Violation:  %s\n", r.ViolationType)
	fmt.Printf("Status:     %s\n", colorizeReportStatus(r.Status))
	fmt.Printf("Confidence: %.0f%%\n", r.Confidence*100)
	if r.Coordinates != "" {
		fmt.Printf("Location:   %s\n", r.Coordinates)
	}
	fmt.Printf("Created:    %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if r.RewardAmount > 0 {
		fmt.Printf("Reward:     %d\n", r.RewardAmount)
	}
	for _, e := range r.Evidence {
		fmt.Printf("Evidence:   %s (%s)\n", e.URL, e.Kind)
	}
	fmt.Println()
}

func renderWallet(out sim.WalletSummary) {
	accent.Println("\n== WALLET ==")
	fmt.Printf("Balance:  %d\n", out.Wallet.Balance)
	fmt.Printf("Updated:  %s\n", out.Wallet.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

	fmt.Println()
	accent.Println("Rewards")
	if len(out.PendingRewards) == 0 {
		printInfo("No rewards yet.")
	} else {
		fmt.Printf("%-10s %-10s %8s %-10s %-16s\n", "ID", "REPORT", "AMOUNT", "STATUS", "CREATED")
		for _, rw := range out.PendingRewards {
			fmt.Printf("%-10s %-10s %8d %-10s %-16s\n",
				shortID(rw.ID),
				shortID(rw.ReportID),
				rw.Amount,
				string(rw.Status),
				rw.CreatedAt.Local().Format("2006-01-02 15:04"),
			)
		}
	}

	fmt.Println()
	accent.Println("Payouts")
	if len(out.PayoutRequests) == 0 {
		printInfo("No payout requests yet.")
	} else {
		fmt.Printf("%-10s %8s %-12s %-16s\n", "ID", "AMOUNT", "STATUS", "UPDATED")
		for _, p := range out.PayoutRequests {
			fmt.Printf("%-10s %8d %-12s %-16s\n",
				shortID(p.ID),
				p.Amount,
				colorizePayoutStatus(p.Status),
				p.UpdatedAt.Local().Format("2006-01-02 15:04"),
			)
		}
	}
	fmt.Println()
}

func renderTickets(tickets []sim.SupportTicket) {
	accent.Println("\n== SUPPORT TICKETS ==")
	if len(tickets) == 0 {
		printInfo("No tickets yet.")
		return
	}
	fmt.Printf("%-10s %-30s %-12s %-16s\n", "ID", "SUBJECT", "STATUS", "CREATED")
	for _, t := range tickets {
		fmt.Printf("%-10s %-30s %-12s %-16s\n",
			shortID(t.ID),
			truncate(t.Subject, 30),
			string(t.Status),
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	fmt.Println()
}

func renderReferral(info sim.ReferralInfo) {
	accent.Println("\n== REFERRAL ==")
	link := "https://scootwatch.app/auth?ref=" + info.Code
	fmt.Printf("Code:    %s\n", info.Code)
	fmt.Printf("Link:    %s\n", link)
	fmt.Printf("Invited: %d\n", len(info.Invites))
	fmt.Printf("Bonus:   %d\n", info.BonusTotal)

	if len(info.Invites) > 0 {
		fmt.Println()
		accent.Println("Invites")
		fmt.Printf("%-24s %-16s\n", "USER", "ACCEPTED")
		for _, inv := range info.Invites {
			fmt.Printf("%-24s %-16s\n", truncate(inv.UserID, 24), inv.AcceptedAt.Local().Format("2006-01-02 15:04"))
		}
	}

	fmt.Println()
	qrterminal.GenerateWithConfig(link, qrterminal.Config{
		Level:     qrterminal.L,
		Writer:    os.Stdout,
		BlackChar: qrterminal.BLACK,
		WhiteChar: qrterminal.WHITE,
		QuietZone: 1,
	})
	fmt.Println()
}

func colorizeReportStatus(s sim.ReportStatus) string {
	switch s {
	case sim.ReportFineIssued:
		return success.Sprint(string(s))
	case sim.ReportRejected:
		return danger.Sprint(string(s))
	case sim.ReportUnderReview:
		return warn.Sprint(string(s))
	default:
		return neutral.Sprint(string(s))
	}
}

func colorizePayoutStatus(s sim.PayoutStatus) string {
	switch s {
	case sim.PayoutPaid:
		return success.Sprint(string(s))
	case sim.PayoutRejected:
		return danger.Sprint(string(s))
	default:
		return warn.Sprint(string(s))
	}
}

func formatReward(v int64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatInt(v, 10)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
