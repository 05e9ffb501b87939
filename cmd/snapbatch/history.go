package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/EpicMandM/vsphere-snapbatch/internal/config"
	"github.com/EpicMandM/vsphere-snapbatch/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent batch runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := config.LoadBatchConfig(configPath)
		if err != nil {
			return err
		}
		if batch.History.Path == "" {
			return fmt.Errorf("run history is disabled: set history.path in %s", configPath)
		}

		st, err := store.NewSQLiteStore(batch.History.Path)
		if err != nil {
			return err
		}
		defer func() {
			_ = st.Close()
		}()

		runs, err := st.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKind\tTag\tStarted\tSucceeded\tFailed\tNote")
		for _, run := range runs {
			succeeded, failed := run.Results.Counts()
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				run.ID, run.Kind, run.Tag, run.Started.Format("2006-01-02 15:04:05"), succeeded, failed, run.Noop)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
}
