package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/richxcame/fleet-engine/internal/forecast"
	"github.com/richxcame/fleet-engine/internal/rebalancing"
	"github.com/richxcame/fleet-engine/internal/stations"
	"github.com/richxcame/fleet-engine/pkg/config"
	"github.com/richxcame/fleet-engine/pkg/database"
	"github.com/richxcame/fleet-engine/pkg/logger"
)

const serviceName = "fleetctl"

var rootCmd = &cobra.Command{
	Use:           "fleetctl",
	Short:         "Operate the fleet rebalancing engine",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serviceName)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := logger.Init(cfg.Server.Environment, serviceName); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	},
}

type configKey struct{}

// Execute runs the CLI.
func Execute() error {
	defer logger.Sync()
	return rootCmd.ExecuteContext(context.Background())
}

func configFrom(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(configKey{}).(*config.Config)
	return cfg
}

// engine holds the services a command needs, wired to a live pool
type engine struct {
	pool        *pgxpool.Pool
	forecasts   *forecast.Service
	stations    *stations.Service
	rebalancing *rebalancing.Service
}

func connect(cmd *cobra.Command) (*engine, error) {
	cfg := configFrom(cmd)
	pool, err := database.NewPostgresPool(cmd.Context(), &cfg.Database, serviceName)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	forecasts := forecast.NewService(forecast.NewRepository(pool))
	stationService := stations.NewService(stations.NewRepository(pool), forecasts)
	rebalancingService := rebalancing.NewService(rebalancing.NewRepository(pool), stationService)
	rebalancingService.SetDefaultCapacity(cfg.Engine.DefaultVehicleCapacity)

	return &engine{
		pool:        pool,
		forecasts:   forecasts,
		stations:    stationService,
		rebalancing: rebalancingService,
	}, nil
}

func (e *engine) Close() {
	database.Close(e.pool)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
