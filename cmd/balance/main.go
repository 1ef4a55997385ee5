// CLI tool to print a user's daily energy balance straight from the database.
// Usage: go run ./cmd/balance --user 1 [--date YYYY-MM-DD] [--watch]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lg/energy-balance-api/internal/energy"
	"lg/energy-balance-api/internal/store"
)

var (
	deficitColor = color.New(color.FgGreen, color.Bold)
	surplusColor = color.New(color.FgRed, color.Bold)
	deniedColor  = color.New(color.FgYellow)
	dimColor     = color.New(color.FgHiBlack)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd(ctx context.Context) *cobra.Command {
	var (
		userID   int
		date     string
		watch    bool
		tz       string
		interval time.Duration
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:          "balance",
		Short:        "Print a user's daily energy balance",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			loc := time.Local
			if tz != "" {
				l, err := time.LoadLocation(tz)
				if err != nil {
					return fmt.Errorf("invalid --tz: %w", err)
				}
				loc = l
			}
			logLevel := zerolog.WarnLevel
			if verbose {
				logLevel = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(logLevel).With().Timestamp().Logger()

			pool, err := store.Connect(ctx, os.Getenv("DB_URL"))
			if err != nil {
				return err
			}
			defer pool.Close()
			st := store.New(pool, logger)

			engine := energy.NewEngine(st.ProfileSource(userID), st.ActivitySource(userID), energy.Config{
				PollInterval: interval,
				Location:     loc,
				Logger:       logger,
			})

			day := energy.StartOfDay(engine.Now(), loc)
			if date != "" {
				day, err = time.ParseInLocation("2006-01-02", date, loc)
				if err != nil {
					return fmt.Errorf("invalid --date, expected YYYY-MM-DD")
				}
			}

			if !watch {
				mode, err := engine.ModeFor(day)
				if err != nil {
					return err
				}
				b, err := engine.Compute(ctx, day)
				if err != nil {
					return explain(err)
				}
				printBalance(mode, b)
				return nil
			}
			return watchBalance(ctx, engine, day)
		},
	}
	cmd.Flags().IntVar(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&date, "date", "", "day to compute (default today)")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep today's balance updating until interrupted")
	cmd.Flags().StringVar(&tz, "tz", "", "IANA time zone for day boundaries (default local)")
	cmd.Flags().DurationVar(&interval, "interval", energy.DefaultPollInterval, "poll interval in watch mode")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	cmd.MarkFlagRequired("user")
	return cmd
}

// watchBalance prints every update until interrupted. A past day prints once.
func watchBalance(ctx context.Context, engine *energy.Engine, day time.Time) error {
	agg := energy.NewAggregator(ctx, engine)
	defer agg.Close()
	if err := agg.Select(day); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-agg.Updates():
			if !ok {
				return nil
			}
			if u.Err != nil {
				fmt.Fprintln(os.Stderr, explain(u.Err))
			} else {
				printBalance(u.Mode, u.Balance)
			}
			if u.Mode == energy.ModeHistorical {
				return u.Err
			}
		}
	}
}

// explain turns fatal core errors into something a user can act on.
func explain(err error) error {
	var verr *energy.ValidationError
	switch {
	case errors.Is(err, energy.ErrProfileNotConfigured):
		return fmt.Errorf("no profile configured: set sex, date of birth, weight and height first")
	case errors.As(err, &verr):
		return fmt.Errorf("profile %s is %g, must be between %g and %g", verr.Field, verr.Value, verr.Min, verr.Max)
	}
	return err
}

func printBalance(mode energy.Mode, b energy.EnergyBalance) {
	fmt.Printf("%s  %s\n", b.Date.Format("Mon 2006-01-02"), dimColor.Sprint(mode))
	fmt.Printf("  BMR          %8.1f kcal\n", b.BMR)
	fmt.Printf("  NEAT         %8.1f kcal%s\n", b.NEAT, statusNote(b.NEATStatus))
	fmt.Printf("  Active       %8.1f kcal%s\n", b.ActiveCalories, statusNote(b.ActiveStatus))
	fmt.Printf("  TDEE         %8.1f kcal\n", b.TDEE)
	fmt.Printf("  Calories in  %8.1f kcal%s\n", b.CaloriesIn, statusNote(b.CaloriesInStatus))

	line := fmt.Sprintf("  %-12s %8.1f kcal", strings.ToUpper(b.Direction()[:1])+b.Direction()[1:], abs(b.DeficitSurplus))
	switch b.Direction() {
	case "deficit":
		deficitColor.Println(line)
	case "surplus":
		surplusColor.Println(line)
	default:
		fmt.Println(line)
	}
}

func statusNote(s energy.Status) string {
	switch s {
	case energy.StatusPermissionDenied:
		return deniedColor.Sprint("  (access denied)")
	case energy.StatusUnavailable:
		return deniedColor.Sprint("  (unavailable)")
	case energy.StatusNoData:
		return dimColor.Sprint("  (no data)")
	}
	return ""
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
