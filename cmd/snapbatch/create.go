package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
)

var (
	createName        string
	createDescription string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a snapshot on every tagged VM",
	Long: `Create a snapshot with the given name on every VM carrying the
configured tag. VMs declared in shutdown_vms are gracefully shut down
first and powered back on after the batch. Outcomes are validated after
a settle delay, with one retry pass for failures.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		env, err := setup(ctx)
		if err != nil {
			return err
		}
		defer env.close(ctx)

		tag, err := env.tag()
		if err != nil {
			return err
		}
		name := createName
		if name == "" {
			name = env.batch.Batch.SnapshotName
		}
		if name == "" {
			return fmt.Errorf("no snapshot name: set batch.snapshot_name or pass --name")
		}
		description := createDescription
		if description == "" {
			description = env.batch.Batch.SnapshotDescription
		}

		started := time.Now()
		result, err := env.orch.RunCreate(ctx, tag, name, description, env.batch.Batch.ShutdownVMs)
		if err != nil {
			return err
		}

		env.saveRun(&models.Run{
			ID:       uuid.NewString(),
			Kind:     string(models.ActionCreate),
			Tag:      tag,
			Started:  started,
			Finished: time.Now(),
			Results:  result,
		})
		return summarize(result)
	},
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "snapshot name (overrides batch.snapshot_name)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "snapshot description")
}
