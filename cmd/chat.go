package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/urbanalert/internal/ai"
	"github.com/urbanalert/internal/config"
	"github.com/urbanalert/internal/flow"
	"github.com/urbanalert/internal/geo"
	"github.com/urbanalert/internal/llm"
	"github.com/urbanalert/internal/logging"
	"github.com/urbanalert/internal/ui"
	"github.com/urbanalert/pkg/models"
)

// ChatCommand returns the interactive conversation command
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive hazard-report conversation",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "offline",
				Usage:   "run without the AI service, using canned fallbacks",
				EnvVars: []string{"URBANALERT_OFFLINE"},
			},
			&cli.Float64Flag{
				Name:  "gps-lat",
				Usage: "simulated device latitude (defaults to city center)",
			},
			&cli.Float64Flag{
				Name:  "gps-lng",
				Usage: "simulated device longitude (defaults to city center)",
			},
			&cli.BoolFlag{
				Name:  "gps-fail",
				Usage: "simulate GPS acquisition failure",
			},
		},
		Action: runChat,
	}
}

func runChat(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.General.LogLevel, cfg.General.LogPretty)

	if c.Bool("offline") {
		cfg.AI.Offline = true
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := c.Context
	cityCenter := models.Coordinate{Lat: cfg.City.CenterLat, Lng: cfg.City.CenterLng}

	gateway, err := buildGateway(ctx, cfg, cityCenter)
	if err != nil {
		return err
	}

	locator := geo.StaticLocator{
		Coord: simulatedCoordinate(cityCenter,
			c.Float64("gps-lat"), c.Float64("gps-lng"),
			c.IsSet("gps-lat"), c.IsSet("gps-lng")),
		Delay: 300 * time.Millisecond,
	}
	if c.Bool("gps-fail") {
		locator.Err = fmt.Errorf("position unavailable")
	}

	controller := flow.NewController(flow.Options{
		Gateway:    gateway,
		Locator:    locator,
		ReplyDelay: time.Duration(cfg.Chat.ReplyDelayMS) * time.Millisecond,
	})

	terminal := ui.NewTerminal(controller, os.Stdin, os.Stdout)
	return terminal.Run(ctx)
}

// simulatedCoordinate overlays the set flag values onto the city center, one
// axis at a time, so a single flag never zeroes the other axis
func simulatedCoordinate(center models.Coordinate, lat, lng float64, latSet, lngSet bool) models.Coordinate {
	if latSet {
		center.Lat = lat
	}
	if lngSet {
		center.Lng = lng
	}
	return center
}

// buildGateway wires the AI gateway, falling back to offline mode when the
// remote client cannot be created
func buildGateway(ctx context.Context, cfg *config.Config, cityCenter models.Coordinate) (*ai.Gateway, error) {
	if cfg.AI.Offline {
		log.Info().Msg("Running in offline mode, AI fallbacks only")
		return ai.NewGateway(nil, cfg.City.Name, cityCenter), nil
	}

	client, err := llm.NewGoogleAIClient(ctx, llm.GoogleAIOptions{
		APIKey:    cfg.AI.APIKey,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI client: %w", err)
	}

	return ai.NewGateway(llm.NewResilientClient(client), cfg.City.Name, cityCenter), nil
}
