package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/swarmroute/swarmroute/sched/optimizer"
)

var (
	optimizeSeed   int64
	strategyBudget time.Duration
)

// optimizeCmd runs the dual-strategy pipeline once for a query and prints
// the fused candidates.
var optimizeCmd = &cobra.Command{
	Use:   "optimize <query>",
	Short: "Run the dual-strategy optimizer for a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := newRecorder()
		if err != nil {
			return err
		}
		defer rec.Close()

		pipeline := optimizer.NewPipeline([]optimizer.Strategy{
			optimizer.NewColonyExplorer(optimizeSeed, nil, 0),
			optimizer.NewSwarmRefiner(optimizeSeed+1, nil, 0),
		}, strategyBudget, rec)

		result := pipeline.Optimize(context.Background(), args[0], optimizer.Meta{})

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	optimizeCmd.Flags().Int64Var(&optimizeSeed, "seed", 42, "Seed for both strategies")
	optimizeCmd.Flags().DurationVar(&strategyBudget, "budget", time.Second, "Per-strategy time budget")
	rootCmd.AddCommand(optimizeCmd)
}
