package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/civigrid/evacd/core/dispatch"
	"github.com/civigrid/evacd/infra/logger"
)

var planVehicles []string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run one planning pass and print the plan as JSON",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringSliceVar(&planVehicles, "vehicles", nil, "restrict the run to these vehicle IDs")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	plan, err := svc.PlanOnce(ctx, dispatch.Request{VehicleIDs: planVehicles})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}
