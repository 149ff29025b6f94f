package cli

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-starload/internal/logging"
)

var scheduleInterval string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Reload the warehouse on a fixed interval",
	Long: `Run a full reload immediately and then once per interval until
interrupted with Ctrl+C. Each reload truncates the warehouse tables and
loads the current extracts from scratch; a reload never overlaps the
previous one. Load settings are taken from the configuration file and
the same flags as the 'run' command.

Example:
  pgedge-starload schedule --interval 6h --data-dir /srv/extracts`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleInterval, "interval", "",
		"time between reloads, e.g. 30m or 6h (default: 24h)")
	scheduleCmd.Flags().AddFlagSet(runCmd.Flags())
}

func runSchedule(cmd *cobra.Command, args []string) error {
	applyRunFlags()
	if scheduleInterval != "" {
		cfg.Schedule.Interval = scheduleInterval
	}

	if err := cfg.ValidateSchedule(); err != nil {
		return err
	}
	interval, err := cfg.Schedule.IntervalDuration()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	job, err := scheduler.Every(interval).Do(func() {
		logging.Info().Msg("Starting scheduled reload")
		rep, err := loadWarehouse(ctx, true)
		if err != nil {
			logging.Error().Err(err).Str("run_id", rep.RunID).Msg("Scheduled reload failed")
			return
		}
		logging.Info().
			Str("run_id", rep.RunID).
			Dur("duration", rep.Duration).
			Msg("Scheduled reload complete")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reload: %w", err)
	}

	logging.Info().
		Dur("interval", interval).
		Msg("Scheduler started")

	scheduler.StartAsync()
	<-ctx.Done()

	logging.Info().
		Int("runs", job.RunCount()).
		Msg("Stopping scheduler")
	scheduler.Stop()

	return nil
}
