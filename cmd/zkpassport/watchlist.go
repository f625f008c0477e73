package zkpassport

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mynextid/zk-passport/logger"
	"github.com/mynextid/zk-passport/watchlist"
)

type watchlistConfig struct {
	source   string
	depth    int
	logLevel string

	mrz            string
	firstName      string
	lastName       string
	dob            string
	passportNumber string
}

func NewWatchlistCmd() *cobra.Command {
	cfg := &watchlistConfig{}

	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Build the watchlist trees and query them",
		Long:  `Build the three sparse Merkle trees of a sanctions list and print their roots. With a query, report membership at every level.`,
		Example: `  # Print the roots
  zkpassport watchlist --source ofac.json

  # Check a person
  zkpassport watchlist --source ofac.json --first-name John --last-name Doe --dob 1970-01-01

  # Check the holder of an MRZ
  zkpassport watchlist --source ofac.json --mrz "P<FRADUPONT<<..."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchlist(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.source, "source", "s", "", "Watchlist JSON file")
	cmd.Flags().IntVar(&cfg.depth, "depth", watchlist.DefaultDepth, "Tree depth")
	cmd.Flags().StringVar(&cfg.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&cfg.mrz, "mrz", "", "Query the holder of a TD3 MRZ")
	cmd.Flags().StringVar(&cfg.firstName, "first-name", "", "Query first name")
	cmd.Flags().StringVar(&cfg.lastName, "last-name", "", "Query last name")
	cmd.Flags().StringVar(&cfg.dob, "dob", "", "Query date of birth (YYMMDD or YYYY-MM-DD)")
	cmd.Flags().StringVar(&cfg.passportNumber, "passport-number", "", "Query passport number")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runWatchlist(cfg *watchlistConfig) error {
	logger.Setup(cfg.logLevel, "text", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w, err := watchlist.Build(ctx, watchlist.JSONFileSource{Path: cfg.source}, watchlist.Options{Depth: cfg.depth})
	if err != nil {
		return err
	}

	color.Cyan("==== Watchlist roots (depth %d) ====", w.Depth())
	roots := w.Roots()
	for _, level := range watchlist.Levels {
		t, _ := w.Tree(level)
		fmt.Printf("  %-16s %s (%d leaves, %d skipped)\n", level, roots[level], t.Size, t.Skipped)
	}

	query := watchlist.Entry{
		FirstName: cfg.firstName,
		LastName:  cfg.lastName,
		DOB:       cfg.dob,
	}
	if cfg.passportNumber != "" {
		query.PassportNumbers = []string{cfg.passportNumber}
	}
	if cfg.mrz == "" && query.LastName == "" && query.FirstName == "" && cfg.passportNumber == "" {
		return nil
	}

	fmt.Println()
	color.Cyan("==== Query ====")
	for _, level := range watchlist.Levels {
		if err := queryLevel(ctx, w, level, cfg.mrz, query); err != nil {
			fmt.Printf("  %-16s %s\n", level, color.YellowString("skipped: %v", err))
		}
	}
	return nil
}

func queryLevel(ctx context.Context, w *watchlist.Watchlist, level watchlist.Level, mrz string, query watchlist.Entry) error {
	var proofs []*watchlist.Proof
	if mrz != "" {
		p, err := w.ProveMRZ(ctx, level, mrz)
		if err != nil {
			return err
		}
		proofs = append(proofs, p)
	} else {
		keys, err := query.Leaves(level)
		if err != nil && len(keys) == 0 {
			return err
		}
		if len(keys) == 0 {
			return fmt.Errorf("no query for this level")
		}
		for _, k := range keys {
			p, err := w.Prove(ctx, level, k)
			if err != nil {
				return err
			}
			proofs = append(proofs, p)
		}
	}

	for _, p := range proofs {
		if p.Member {
			fmt.Printf("  %-16s %s key %s\n", level, color.RedString("LISTED"), p.Key)
		} else {
			fmt.Printf("  %-16s %s\n", level, color.GreenString("not listed"))
		}
	}
	return nil
}
