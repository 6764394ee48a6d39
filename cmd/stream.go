package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/withobsrvr/ttp-consumer/internal/checkpoint"
	"github.com/withobsrvr/ttp-consumer/internal/client"
	"github.com/withobsrvr/ttp-consumer/internal/filter"
	"github.com/withobsrvr/ttp-consumer/internal/utils/logger"
	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

var (
	streamStart     uint32
	streamEnd       uint32
	streamAccounts  []string
	streamResume    string
	streamReconnect bool
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream token transfer events for a ledger range",
	Long: `Stream token transfer events for the inclusive ledger range
[--start, --end] to stdout. Repeat --account to filter to a set of
accounts; events touching none of them are dropped.

With --resume NAME, progress is persisted in the local cursor store and a
restarted stream continues after the last delivered ledger. With
--reconnect, transport failures are retried with exponential backoff,
resuming after the last delivered event.`,
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)

	streamCmd.Flags().Uint32Var(&streamStart, "start", 0, "first ledger of the range (inclusive)")
	streamCmd.Flags().Uint32Var(&streamEnd, "end", 0, "last ledger of the range (inclusive)")
	streamCmd.Flags().StringArrayVarP(&streamAccounts, "account", "a", nil, "account ID to filter on (repeatable)")
	streamCmd.Flags().StringVar(&streamResume, "resume", "", "cursor name to resume from and record progress under")
	streamCmd.Flags().BoolVar(&streamReconnect, "reconnect", false, "reconnect with exponential backoff on transport failure")
	streamCmd.MarkFlagRequired("start")
	streamCmd.MarkFlagRequired("end")
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := client.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := streamStart
	accounts := filter.NewAccountSet(streamAccounts)

	// Resume from the cursor store if requested
	var store checkpoint.CursorStore
	if streamResume != "" {
		store = checkpoint.NewBoltStore(&checkpoint.BoltOptions{Path: cfg.CheckpointPath})
		if err := store.Open(); err != nil {
			return err
		}
		defer store.Close()

		cur, err := store.Get(ctx, streamResume)
		switch {
		case checkpoint.IsNotFound(err):
			// First run under this name
		case err != nil:
			return err
		case cur.Server != cfg.ServerAddress || cur.Filter != accounts.Fingerprint():
			logger.Warn("Cursor was recorded for a different query, starting over",
				zap.String("cursor", streamResume))
		case cur.LastLedger >= start:
			start = cur.LastLedger + 1
			logger.Info("Resuming from cursor",
				zap.String("cursor", streamResume),
				zap.Uint32("start_ledger", start))
		}
	}

	run := func() error {
		if start > streamEnd {
			return nil // already delivered the whole range
		}

		stream, err := c.Events(ctx, start, streamEnd, streamAccounts)
		if err != nil {
			return err
		}
		defer stream.Close()

		for {
			ev, err := stream.Recv()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			if err := printEvent(ev, output); err != nil {
				return err
			}

			start = ev.Meta.LedgerSequence + 1
			if store != nil {
				cur := &checkpoint.Cursor{
					Name:       streamResume,
					Server:     cfg.ServerAddress,
					Filter:     accounts.Fingerprint(),
					LastLedger: ev.Meta.LedgerSequence,
					UpdatedAt:  time.Now().UTC(),
				}
				if err := store.Put(ctx, cur); err != nil {
					logger.Warn("Failed to record cursor", zap.Error(err))
				}
			}
		}
	}

	if !streamReconnect {
		return run()
	}

	// Retry policy lives here, above the client: the client itself never
	// retries. Each attempt resumes after the last delivered event.
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(func() error {
		err := run()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		logger.Warn("Stream interrupted, reconnecting",
			zap.Uint32("next_ledger", start),
			zap.Error(err))
		return err
	}, policy)
}

// retryable reports whether reconnecting can help. Validation and remote
// status failures repeat identically, so only transport trouble retries.
func retryable(err error) bool {
	var ce *client.ConnectionError
	return errors.As(err, &ce)
}

var (
	eventTypeColor = color.New(color.FgCyan, color.Bold)
	ledgerColor    = color.New(color.FgYellow)
	accountColor   = color.New(color.FgGreen)
	faintColor     = color.New(color.Faint)
)

// printEvent writes one event to stdout in the selected format
func printEvent(ev *wire.TokenTransferEvent, format string) error {
	switch format {
	case "json":
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(ev)
		if err != nil {
			return err
		}
		fmt.Println("---")
		fmt.Print(string(data))
	default:
		eventTypeColor.Printf("%-9s", ev.Type)
		ledgerColor.Printf(" ledger=%d", ev.Meta.LedgerSequence)
		if ev.From != "" {
			fmt.Print(" from=")
			accountColor.Print(ev.From)
		}
		if ev.To != "" {
			fmt.Print(" to=")
			accountColor.Print(ev.To)
		}
		fmt.Printf(" amount=%s asset=%s", ev.Amount, ev.Asset)
		faintColor.Printf("  tx=%s", ev.Meta.TxHash)
		fmt.Println()
	}
	return nil
}
