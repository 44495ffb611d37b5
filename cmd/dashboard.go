package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/urbanalert/internal/config"
	"github.com/urbanalert/internal/dashboard"
	"github.com/urbanalert/internal/logging"
	"github.com/urbanalert/pkg/models"
)

// DashboardCommand returns the analytics dashboard server command
func DashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Serve the read-only analytics dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "listen address (overrides config)",
			},
			&cli.StringFlag{
				Name:  "reports",
				Usage: "path to a JSON file with reports to display",
			},
		},
		Action: runDashboard,
	}
}

func runDashboard(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.General.LogLevel, cfg.General.LogPretty)

	addr := cfg.Dashboard.Listen
	if c.String("listen") != "" {
		addr = c.String("listen")
	}

	var reports []models.Report
	if path := c.String("reports"); path != "" {
		reports, err = loadReports(path)
		if err != nil {
			return fmt.Errorf("failed to load reports: %w", err)
		}
		log.Info().Int("count", len(reports)).Str("path", path).Msg("Loaded reports")
	}

	server := dashboard.NewServer(addr, func() []models.Report {
		return reports
	})

	log.Info().Str("addr", addr).Msg("Starting dashboard server")
	return server.Start()
}

func loadReports(path string) ([]models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reports []models.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("invalid reports file %s: %w", path, err)
	}
	return reports, nil
}
