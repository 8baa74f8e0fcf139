package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/richxcame/fleet-engine/internal/rebalancing"
	"github.com/richxcame/fleet-engine/internal/scheduler"
	"github.com/richxcame/fleet-engine/pkg/geo"
	"github.com/richxcame/fleet-engine/pkg/logger"
	"github.com/richxcame/fleet-engine/pkg/validation"
)

var (
	evaluateZone string

	optimizeTasks    []string
	optimizeLat      float64
	optimizeLng      float64
	optimizeCapacity int
	optimizeDispatch bool

	reconcileSweep bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate station balance, most urgent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := connect(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if evaluateZone != "" {
			evals, err := e.stations.EvaluateZone(cmd.Context(), evaluateZone)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), evals)
		}
		evals, err := e.stations.EvaluateAll(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), evals)
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Build capacity-bounded routes for rebalancing tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseTaskIDs(optimizeTasks)
		if err != nil {
			return err
		}
		if err := validation.ValidateCoordinates(optimizeLat, optimizeLng); err != nil {
			return err
		}

		e, err := connect(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		start := geo.GeoPoint{Latitude: optimizeLat, Longitude: optimizeLng}
		build := e.rebalancing.Optimize
		if optimizeDispatch {
			build = e.rebalancing.Dispatch
		}

		routes, err := build(cmd.Context(), ids, start, optimizeCapacity)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rebalancing.OptimizeResponse{
			Routes:     routes,
			RouteCount: len(routes),
			TaskCount:  countStops(routes),
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one forecast reconciliation pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := connect(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		var sweeper scheduler.Sweeper
		if reconcileSweep {
			sweeper = e.rebalancing
		}
		worker := scheduler.NewWorker(e.forecasts, sweeper, logger.Get(), time.Minute)

		res := worker.RunOnce(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d forecasts, opened %d tasks\n", res.Reconciled, res.TasksCreated)
		return nil
	},
}

func parseTaskIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one --task is required")
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid task id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func countStops(routes []rebalancing.Route) int {
	n := 0
	for _, r := range routes {
		n += len(r.Stops)
	}
	return n
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateZone, "zone", "", "limit to one zone")

	optimizeCmd.Flags().StringSliceVar(&optimizeTasks, "task", nil, "task id, repeatable")
	optimizeCmd.Flags().Float64Var(&optimizeLat, "lat", 0, "vehicle latitude")
	optimizeCmd.Flags().Float64Var(&optimizeLng, "lng", 0, "vehicle longitude")
	optimizeCmd.Flags().IntVar(&optimizeCapacity, "capacity", 0, "vehicle capacity, 0 for the configured default")
	optimizeCmd.Flags().BoolVar(&optimizeDispatch, "dispatch", false, "claim the tasks so no other vehicle routes them")

	reconcileCmd.Flags().BoolVar(&reconcileSweep, "sweep", false, "also open tasks for out-of-balance stations")

	rootCmd.AddCommand(evaluateCmd, optimizeCmd, reconcileCmd)
}
