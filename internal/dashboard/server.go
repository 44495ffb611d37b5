package dashboard

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/urbanalert/internal/stats"
	"github.com/urbanalert/pkg/models"
)

// Source yields the current report collection. The server only ever reads
// snapshots; it never mutates session state.
type Source func() []models.Report

// Marker is one report plotted on the dashboard map, with the popup fields
type Marker struct {
	ID           string  `json:"id"`
	Category     string  `json:"category"`
	SubCategory  string  `json:"sub_category,omitempty"`
	Neighborhood string  `json:"neighborhood,omitempty"`
	Severity     int     `json:"severity"`
	Description  string  `json:"description"`
	Analysis     string  `json:"analysis"`
	ImageRef     string  `json:"image_ref,omitempty"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

// Payload is the full dashboard dataset: KPIs, the three chart datasets, and
// the map markers
type Payload struct {
	KPIs          stats.KPIs               `json:"kpis"`
	Neighborhoods []stats.NeighborhoodRisk `json:"neighborhoods"`
	Categories    []stats.CategoryCount    `json:"categories"`
	Severities    []stats.SeverityBucket   `json:"severities"`
	Markers       []Marker                 `json:"markers"`
	GeneratedAt   time.Time                `json:"generated_at"`
}

// Server serves the analytics dashboard data over a local HTTP listener
type Server struct {
	echo   *echo.Echo
	addr   string
	source Source
}

// NewServer creates a dashboard server reading reports from source
func NewServer(addr string, source Source) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{echo: e, addr: addr, source: source}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	e.GET("/api/v1/dashboard", s.getDashboard)

	return s
}

// Start runs the listener until interrupted, then shuts down gracefully
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying HTTP handler for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) getDashboard(c echo.Context) error {
	return c.JSON(http.StatusOK, BuildPayload(s.source()))
}

// BuildPayload derives the complete dashboard dataset from a report snapshot
func BuildPayload(reports []models.Report) Payload {
	markers := make([]Marker, 0, len(reports))
	for _, r := range reports {
		markers = append(markers, Marker{
			ID:           r.ID,
			Category:     string(r.Category),
			SubCategory:  r.SubCategory,
			Neighborhood: r.Neighborhood,
			Severity:     r.Severity,
			Description:  r.Description,
			Analysis:     r.Analysis,
			ImageRef:     r.ImageRef,
			Lat:          r.Coordinate.Lat,
			Lng:          r.Coordinate.Lng,
		})
	}

	return Payload{
		KPIs:          stats.Summary(reports),
		Neighborhoods: stats.NeighborhoodRisks(reports),
		Categories:    stats.CategoryHistogram(reports),
		Severities:    stats.SeverityBuckets(reports),
		Markers:       markers,
		GeneratedAt:   time.Now(),
	}
}
