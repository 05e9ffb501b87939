package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EpicMandM/vsphere-snapbatch/internal/config"
	"github.com/EpicMandM/vsphere-snapbatch/internal/logger"
	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
	"github.com/EpicMandM/vsphere-snapbatch/internal/orchestrator"
	"github.com/EpicMandM/vsphere-snapbatch/internal/service"
	"github.com/EpicMandM/vsphere-snapbatch/internal/store"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	envFile     string
	configPath  string
	tagOverride string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snapbatch",
	Short: "Bulk snapshot operations for tagged vSphere VMs",
	Long: `snapbatch creates and prunes snapshots across every VM carrying a
vSphere tag, shutting down declared sensitive VMs first and restoring
them afterwards. Remote operations run under a concurrency cap and are
polled to completion.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file with vCenter credentials")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "snapbatch.toml", "batch configuration file")
	rootCmd.PersistentFlags().StringVar(&tagOverride, "tag", "", "override the configured inventory tag")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(historyCmd)
}

// runtimeEnv bundles everything a subcommand needs after setup.
type runtimeEnv struct {
	log   *logger.Logger
	batch *config.BatchConfig
	svc   *service.VSphereService
	orch  *orchestrator.Orchestrator
}

func setup(ctx context.Context) (*runtimeEnv, error) {
	log := logger.New()

	cfg, err := config.LoadWithFile(envFile)
	if err != nil {
		return nil, err
	}
	batch, err := config.LoadBatchConfig(configPath)
	if err != nil {
		return nil, err
	}

	svc, err := service.NewVSphereService(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vCenter: %w", err)
	}

	orch := &orchestrator.Orchestrator{
		Client: svc,
		Logger: log,
		Options: orchestrator.Options{
			Concurrency:       batch.Concurrency(),
			PowerPollInterval: batch.Intervals.PowerPoll(),
			PowerTimeout:      batch.Intervals.PowerTimeout(),
			TaskPollInterval:  batch.Intervals.TaskPoll(),
			JobPollInterval:   batch.Intervals.JobPoll(),
			JobTimeout:        batch.Intervals.JobTimeout(),
			SettleDelay:       batch.Intervals.Settle(),
		},
		Progress: renderEvent,
		Confirm:  confirmRetry,
	}

	return &runtimeEnv{log: log, batch: batch, svc: svc, orch: orch}, nil
}

func (e *runtimeEnv) close(ctx context.Context) {
	if err := e.svc.Close(ctx); err != nil {
		e.log.Error("Failed to close vCenter session", logger.Error(err))
	}
}

func (e *runtimeEnv) tag() (string, error) {
	if tagOverride != "" {
		return tagOverride, nil
	}
	if e.batch.Batch.Tag != "" {
		return e.batch.Batch.Tag, nil
	}
	return "", fmt.Errorf("no tag configured: set batch.tag in %s or pass --tag", configPath)
}

// renderEvent prints one progress line per phase transition.
func renderEvent(ev models.Event) {
	fmt.Printf("%-24s %-10s %s\n", ev.Target, ev.Phase, ev.Status)
}

// confirmRetry pauses for operator acknowledgment before the single
// retry pass of the create path.
func confirmRetry(failed int) bool {
	fmt.Printf("%d target(s) failed validation. Press Enter to retry once, or type 'skip' to continue: ", failed)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) != "skip"
}

// saveRun persists the run when a history path is configured.
func (e *runtimeEnv) saveRun(run *models.Run) {
	if e.batch.History.Path == "" {
		return
	}
	st, err := store.NewSQLiteStore(e.batch.History.Path)
	if err != nil {
		e.log.Error("Failed to open run history store", logger.Error(err))
		return
	}
	defer func() {
		if err := st.Close(); err != nil {
			e.log.Error("Failed to close run history store", logger.Error(err))
		}
	}()
	if err := st.SaveRun(run); err != nil {
		e.log.Error("Failed to save run", logger.RunID(run.ID), logger.Error(err))
		return
	}
	e.log.Info("Run recorded", logger.RunID(run.ID))
}

func summarize(result models.BatchResult) error {
	succeeded, failed := result.Counts()
	fmt.Printf("\n%d succeeded, %d failed\n", succeeded, failed)
	for _, id := range result.Failed() {
		fmt.Printf("  %s: %s\n", id, result[id].Diagnostic)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, succeeded+failed)
	}
	return nil
}
