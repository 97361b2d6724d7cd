package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/licensestore/internal/jobs"
	"github.com/frahmantamala/licensestore/internal/payment"
	"github.com/frahmantamala/licensestore/internal/paymentgateway"
)

const (
	jobReconcilePayments = "reconcile-payments"
	jobExpireOrders      = "expire-orders"
	jobSweepSLA          = "sweep-sla"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background job scheduler",
	Long:  `Run periodic jobs: PayOS payment reconciliation, expiry of stale pending orders and the ticket SLA sweep.`,
	Run: func(cmd *cobra.Command, args []string) {
		startWorker()
	},
}

var (
	maxWorkers   int
	jobQueueSize int
	runOnce      string
)

func startWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	svc, err := buildServices(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()
	lg := svc.Logger

	pool := paymentgateway.NewPool(
		getIntFlag(maxWorkers, cfg.Worker.MaxWorkers),
		getIntFlag(jobQueueSize, cfg.Worker.JobQueueSize),
		lg,
	)
	defer pool.Shutdown()

	reconciler := payment.NewReconciler(svc.Payment, pool, 0, lg)
	scheduler := jobs.NewScheduler(lg)

	schedule := []jobs.Job{
		{Name: jobReconcilePayments, Schedule: cfg.Worker.ReconcileSchedule, Timeout: 2 * time.Minute, Run: reconciler.RunOnce},
		{Name: jobExpireOrders, Schedule: cfg.Worker.ReconcileSchedule, Timeout: time.Minute, Run: func(ctx context.Context) (int, error) {
			return svc.Order.ExpireStale(ctx, cfg.Worker.PendingAfter)
		}},
		{Name: jobSweepSLA, Schedule: cfg.Worker.SLASchedule, Timeout: time.Minute, Run: svc.Support.SweepSLA},
	}
	for _, job := range schedule {
		if err := scheduler.Add(job); err != nil {
			lg.Error("failed to register job", "error", err)
			os.Exit(1)
		}
	}

	if runOnce != "" {
		if _, err := scheduler.RunNow(context.Background(), runOnce); err != nil {
			os.Exit(1)
		}
		return
	}

	scheduler.Start()
	lg.Info("worker is running. Press Ctrl+C to stop.", "jobs", scheduler.Names())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	lg.Info("received signal, shutting down worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	scheduler.Stop(ctx)
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	workerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of PayOS lookup workers (overrides config)")
	workerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "PayOS lookup queue size (overrides config)")
	workerCmd.Flags().StringVar(&runOnce, "once", "", "Run a single job now and exit ("+jobReconcilePayments+", "+jobExpireOrders+", "+jobSweepSLA+")")

	rootCmd.AddCommand(workerCmd)
}
