package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/farid/spf-sync/internal/health"
	"github.com/farid/spf-sync/internal/reconcile"
	"github.com/farid/spf-sync/internal/util"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run reconciliation on a schedule",
	Long: `Run reconciliation repeatedly on a cron schedule until interrupted.

Each tick runs the analyze pipeline; with --fix the full repair pipeline
runs instead. Runs never overlap: a tick that fires while the previous
run is still in flight is skipped. Config file changes are picked up
without restarting.

Schedule syntax is standard cron (five fields) or the @every form,
e.g. --schedule "@every 1h" or --schedule "0 2 * * *".`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("schedule", "@every 1h", "cron schedule for reconciliation runs")
	watchCmd.Flags().Bool("fix", false, "apply corrective mutations on each run instead of analyzing only")
	viper.BindPFlag("schedule", watchCmd.Flags().Lookup("schedule"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	schedule := viper.GetString("schedule")
	applyFixes, _ := cmd.Flags().GetBool("fix")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer closeStore()

	// Hot-reload the config file so later ticks pick up collection or
	// retry changes without a restart
	viper.OnConfigChange(func(e fsnotify.Event) {
		util.InfoLog("Config file changed: %s", e.Name)
	})
	viper.WatchConfig()

	var running sync.Mutex

	tick := func() {
		if !running.TryLock() {
			util.WarnLog("Previous run still in flight, skipping this tick")
			return
		}
		defer running.Unlock()

		rec := reconcile.New(&reconcile.Config{
			Store:       store,
			Collections: collections(),
			BatchSize:   viper.GetInt("batch-size"),
		})

		startedAt := time.Now()

		var report *health.Report
		var runErr error
		if applyFixes {
			report, runErr = rec.Repair(ctx)
		} else {
			report, runErr = rec.Analyze(ctx)
		}
		if runErr != nil {
			util.ErrorLog("Scheduled run failed: %v", runErr)
			return
		}

		finishReport(report, startedAt)
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, tick); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	mode := "analyze"
	if applyFixes {
		mode = "fix"
	}
	util.InfoLog("Watching: %s on schedule %q (ctrl-c to stop)", mode, schedule)

	c.Start()
	<-ctx.Done()
	util.InfoLog("Stopping scheduler...")

	// Let an in-flight run finish before exiting
	<-c.Stop().Done()

	return nil
}
