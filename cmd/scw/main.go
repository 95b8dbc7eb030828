package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cl "scootwatch/internal/cli"
	"scootwatch/internal/config"
	"scootwatch/internal/sim"
	"scootwatch/internal/store"
)

type app struct {
	cfg config.Config
	svc *sim.Service
	cls func()
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:          "scw",
		Short:        "Scooter violation reports, wallet, and referrals without a backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			a.svc = sim.NewService(st, logger)
			a.cls = closeStore
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.cls != nil {
				a.cls()
			}
		},
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(),
		newReportCmd(a),
		newWalletCmd(a),
		newWithdrawCmd(a),
		newTicketsCmd(a),
		newReferralCmd(a),
		newWatchCmd(a),
		newResetCmd(a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemory(), func() {}, nil
	case "file":
		st, err := store.NewFile(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	case "sqlite":
		st, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// simulateNetwork sleeps around write commands so the CLI feels like it
// talks to a remote service. Purely cosmetic.
func (a *app) simulateNetwork() {
	if a.cfg.WriteDelay > 0 {
		time.Sleep(a.cfg.WriteDelay)
	}
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with a phone number (local identity, no OTP)",
		RunE: func(cmd *cobra.Command, args []string) error {
			phone, err := promptRequired("Phone")
			if err != nil {
				return err
			}
			name, err := promptOptional("Name (optional)")
			if err != nil {
				return err
			}
			identity, err := cl.IdentityFromPhone(phone)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := a.svc.EnsureWallet(ctx, identity); err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{Identity: identity, Phone: phone, Name: name}); err != nil {
				return err
			}

			// Consume any referral link visit recorded before signup.
			res, err := a.svc.ApplyPendingReferral(ctx, identity)
			if err != nil {
				printWarn(fmt.Sprintf("referral not applied: %v", err))
			} else if res.Applied {
				printInfo(res.Message)
			}

			printSuccess(fmt.Sprintf("Logged in as %s.", identity))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	report := &cobra.Command{
		Use:     "report",
		Short:   "Violation report commands",
		Aliases: []string{"reports"},
	}
	report.AddCommand(newReportNewCmd(a))
	report.AddCommand(newReportListCmd(a))
	report.AddCommand(newReportShowCmd(a))
	return report
}

func newReportNewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new [violation_type]",
		Short: "Submit a new violation report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			var violation string
			if len(args) > 0 {
				violation = strings.ToLower(strings.TrimSpace(args[0]))
				if err := sim.ValidateViolationType(violation); err != nil {
					return err
				}
			} else {
				violation, err = promptChoice("Violation", sim.ViolationTypes(), "sidewalk")
				if err != nil {
					return err
				}
			}
			confidence, err := promptFloatRange("AI confidence", 0, 1)
			if err != nil {
				return err
			}
			coords, err := promptOptional("Coordinates (lat,lon, optional)")
			if err != nil {
				return err
			}
			evidenceURL, err := promptRequired("Evidence URL")
			if err != nil {
				return err
			}

			a.simulateNetwork()
			out, err := a.svc.CreateReport(cmd.Context(), sess.Identity, sim.CreateReportInput{
				ViolationType: violation,
				Confidence:    confidence,
				Coordinates:   coords,
				EvidenceURL:   evidenceURL,
			})
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Report %s submitted, now under review.", shortID(out.ID)))
			return nil
		},
	}
}

func newReportListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [status]",
		Short: "List your reports, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			var filter sim.ReportStatus
			if len(args) > 0 {
				filter = sim.ReportStatus(strings.ToLower(strings.TrimSpace(args[0])))
			}
			out, err := a.svc.ListReports(cmd.Context(), sess.Identity, filter)
			if err != nil {
				return err
			}
			renderReports(out)
			return nil
		},
	}
}

func newReportShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <report_id>",
		Short: "Show one report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			out, err := a.svc.GetReport(cmd.Context(), sess.Identity, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			renderReportDetail(out)
			return nil
		},
	}
}

func newWalletCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "wallet",
		Short: "Show balance, rewards, and payout history",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			out, err := a.svc.GetWallet(cmd.Context(), sess.Identity)
			if err != nil {
				return err
			}
			renderWallet(out)
			return nil
		},
	}
}

func newWithdrawCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw [amount]",
		Short: "Request a payout from your wallet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			var amount int64
			if len(args) > 0 {
				amount, err = strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid amount")
				}
			} else {
				amount, err = promptInt64("Amount", 1)
				if err != nil {
					return err
				}
			}

			a.simulateNetwork()
			res, err := a.svc.RequestPayout(cmd.Context(), sess.Identity, amount)
			if err != nil {
				if res.Message != "" {
					printError(res.Message)
					return nil
				}
				return err
			}
			printSuccess(res.Message)
			return nil
		},
	}
}

func newTicketsCmd(a *app) *cobra.Command {
	tickets := &cobra.Command{
		Use:     "tickets",
		Short:   "Support ticket commands",
		Aliases: []string{"ticket", "support"},
	}
	tickets.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your support tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			out, err := a.svc.ListSupportTickets(cmd.Context(), sess.Identity)
			if err != nil {
				return err
			}
			renderTickets(out)
			return nil
		},
	})
	tickets.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Open a support ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			subject, err := promptRequired("Subject")
			if err != nil {
				return err
			}
			body, err := promptRequired("Message")
			if err != nil {
				return err
			}
			a.simulateNetwork()
			ticket, err := a.svc.CreateSupportTicket(cmd.Context(), sess.Identity, subject, body)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Ticket %s opened.", shortID(ticket.ID)))
			return nil
		},
	})
	return tickets
}

func newReferralCmd(a *app) *cobra.Command {
	referral := &cobra.Command{
		Use:   "referral",
		Short: "Referral link and invite stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			info, err := a.svc.GetReferralInfo(cmd.Context(), sess.Identity)
			if err != nil {
				return err
			}
			renderReferral(info)
			return nil
		},
	}
	referral.AddCommand(&cobra.Command{
		Use:   "visit <code>",
		Short: "Record a referral link visit (pre-signup)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			if err := a.svc.RecordReferralVisit(cmd.Context(), code); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Referral visit recorded for %s. It is applied on next login.", code))
			return nil
		},
	})
	return referral
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Wipe your reports, wallet, tickets, and referral stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			confirm, err := promptChoice("Delete all account data", []string{"yes", "no"}, "no")
			if err != nil {
				return err
			}
			if confirm != "yes" {
				printInfo("Nothing deleted.")
				return nil
			}
			a.simulateNetwork()
			if err := a.svc.ResetAccount(cmd.Context(), sess.Identity); err != nil {
				return err
			}
			printSuccess("Account data reset.")
			return nil
		},
	}
}

// newWatchCmd polls until scheduled work resolves. Each poll is a plain
// read; the reads themselves advance the state machine.
func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Wait for pending reviews and payouts to resolve",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			for {
				reports, err := a.svc.ListReports(ctx, sess.Identity, "")
				if err != nil {
					return err
				}
				summary, err := a.svc.GetWallet(ctx, sess.Identity)
				if err != nil {
					return err
				}
				pending := countPending(reports, summary.PayoutRequests)
				printInfo(fmt.Sprintf("balance=%d pending=%d", summary.Wallet.Balance, pending))
				if pending == 0 {
					printSuccess("Nothing left in flight.")
					return nil
				}
				due, ok, err := a.svc.NextDue(ctx, sess.Identity)
				if err != nil {
					return err
				}
				wait := 3 * time.Second
				if ok {
					if d := time.Until(due); d > wait {
						wait = d
					}
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
		},
	}
}

func countPending(reports []sim.ReportView, payouts []sim.PayoutView) int {
	n := 0
	for _, r := range reports {
		if r.Status == sim.ReportUnderReview {
			n++
		}
	}
	for _, p := range payouts {
		if p.Status == sim.PayoutCreated || p.Status == sim.PayoutProcessing {
			n++
		}
	}
	return n
}
