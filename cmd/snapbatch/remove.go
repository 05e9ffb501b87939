package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
)

var (
	removeMaxRetained int
	removeDryRun      bool
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Prune tagged VMs down to the retention limit",
	Long: `Delete the oldest snapshots of every VM carrying the configured tag
until each holds at most the retained maximum. VMs already at or under
the limit are left untouched; if no VM has excess snapshots the run
exits without any power or snapshot operation.`,
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
		maxRetained := removeMaxRetained
		if maxRetained < 0 {
			maxRetained = env.batch.Retention.MaxSnapshots
		}

		if removeDryRun {
			plan, err := env.orch.PlanRemove(ctx, tag, maxRetained)
			if err != nil {
				return err
			}
			if !plan.NeedsWork() {
				fmt.Println("No excess snapshots, nothing to do")
				return nil
			}
			ids := make([]string, 0, len(plan.Excess))
			for id := range plan.Excess {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Printf("%-24s would remove %d snapshot(s)\n", id, plan.Excess[id])
			}
			fmt.Printf("\n%d snapshot(s) across %d target(s)\n", plan.Total, len(ids))
			return nil
		}

		started := time.Now()
		result, noop, err := env.orch.RunRemove(ctx, tag, maxRetained, env.batch.Batch.ShutdownVMs)
		if err != nil {
			return err
		}
		if noop != "" {
			fmt.Println(noop)
		}

		env.saveRun(&models.Run{
			ID:       uuid.NewString(),
			Kind:     string(models.ActionRemove),
			Tag:      tag,
			Started:  started,
			Finished: time.Now(),
			Noop:     noop,
			Results:  result,
		})
		if noop != "" {
			return nil
		}
		return summarize(result)
	},
}

func init() {
	removeCmd.Flags().IntVar(&removeMaxRetained, "max-retained", -1, "maximum snapshots to keep per VM (overrides retention.max_snapshots)")
	removeCmd.Flags().BoolVar(&removeDryRun, "dry-run", false, "print the prune plan without touching any VM")
}
