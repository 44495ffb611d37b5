package flow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanalert/internal/ai"
	"github.com/urbanalert/internal/geo"
	"github.com/urbanalert/pkg/models"
)

// fakeGateway scripts the AI gateway for deterministic flow tests
type fakeGateway struct {
	greeting string
	analysis ai.Analysis
	location ai.LocationGuess
	category models.Category

	analyzeCalls []string
	inferCalls   []string
}

func (f *fakeGateway) Greeting(context.Context) string { return f.greeting }

func (f *fakeGateway) AnalyzeDescription(_ context.Context, description string, _ models.Category) ai.Analysis {
	f.analyzeCalls = append(f.analyzeCalls, description)
	return f.analysis
}

func (f *fakeGateway) ExtractLocation(context.Context, string) ai.LocationGuess { return f.location }

func (f *fakeGateway) InferCategory(_ context.Context, text string) models.Category {
	f.inferCalls = append(f.inferCalls, text)
	return f.category
}

// instantClock never sleeps but counts how often it was asked to
type instantClock struct{ sleeps int }

func (c *instantClock) Sleep(context.Context, time.Duration) { c.sleeps++ }

func newTestController(gw *fakeGateway, locator geo.Locator) *Controller {
	seq := 0
	return NewController(Options{
		Gateway:    gw,
		Locator:    locator,
		Clock:      &instantClock{},
		ReplyDelay: time.Millisecond,
		Now:        func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%04d", seq)
		},
	})
}

func defaultGateway() *fakeGateway {
	return &fakeGateway{
		greeting: "Olá! Vamos registrar sua ocorrência.",
		analysis: ai.Analysis{Response: "Entendido, equipe avisada.", Severity: 4},
		location: ai.LocationGuess{
			Neighborhood: "Liberdade",
			Coordinate:   models.Coordinate{Lat: -12.94, Lng: -38.49},
			Confirmation: "Registrei o local na Liberdade.",
		},
		category: models.CategoryNone,
	}
}

func lastMessage(t *testing.T, c *Controller) models.Message {
	t.Helper()
	snap := c.Snapshot()
	require.NotEmpty(t, snap.Transcript)
	return snap.Transcript[len(snap.Transcript)-1]
}

func TestStart_GreetsThenPromptsCategories(t *testing.T) {
	gw := defaultGateway()
	c := newTestController(gw, nil)

	c.Start(context.Background())

	snap := c.Snapshot()
	assert.Equal(t, StepCategory, snap.Step)
	require.Len(t, snap.Transcript, 2)
	assert.Equal(t, gw.greeting, snap.Transcript[0].Text)
	assert.Equal(t, models.SenderBot, snap.Transcript[0].Sender)
	assert.Len(t, snap.Transcript[1].QuickReplies, 7)
	assert.False(t, snap.Typing)
}

func TestStart_OnlyFiresOnce(t *testing.T) {
	c := newTestController(defaultGateway(), nil)
	c.Start(context.Background())
	before := len(c.Snapshot().Transcript)

	c.Start(context.Background())
	assert.Equal(t, before, len(c.Snapshot().Transcript))
}

// Scenario: category via quick reply, sub-category pick, short description,
// GPS finalization.
func TestScenario_QuickReplyGPSPath(t *testing.T) {
	gw := defaultGateway()
	locator := geo.StaticLocator{Coord: models.Coordinate{Lat: -12.97, Lng: -38.50}}
	c := newTestController(gw, locator)
	ctx := context.Background()

	c.Start(ctx)

	c.HandleQuickReply(ctx, string(models.CategoryFlooding))
	snap := c.Snapshot()
	assert.Equal(t, StepSubcategory, snap.Step)
	assert.Len(t, lastMessage(t, c).QuickReplies, 5, "flooding offers 5 sub-categories")

	c.HandleQuickReply(ctx, "Bueiro entupido")
	assert.Equal(t, StepDescription, c.Snapshot().Step)

	c.HandleText(ctx, "ok", "")
	snap = c.Snapshot()
	assert.Equal(t, StepLocationMethod, snap.Step)
	require.NotEmpty(t, gw.analyzeCalls)
	assert.Equal(t, "[Bueiro entupido] ok", gw.analyzeCalls[0])
	assert.True(t, lastMessage(t, c).LocationPrompt)

	c.HandleLocationMethod(ctx, LocationGPS)
	snap = c.Snapshot()
	assert.Equal(t, StepCompleted, snap.Step)
	require.Len(t, snap.Reports, 1)

	got := snap.Reports[0]
	assert.Equal(t, models.CategoryFlooding, got.Category)
	assert.Equal(t, "Bueiro entupido", got.SubCategory)
	assert.Equal(t, 4, got.Severity)
	assert.Equal(t, NeighborhoodGPS, got.Neighborhood)
	assert.Equal(t, models.Coordinate{Lat: -12.97, Lng: -38.50}, got.Coordinate)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "Entendido, equipe avisada.", got.Analysis)
}

// Scenario: free text during category selection skips sub-category and
// description entirely.
func TestScenario_FreeTextSkipAhead(t *testing.T) {
	gw := defaultGateway()
	gw.category = models.CategoryStructural
	c := newTestController(gw, nil)
	ctx := context.Background()

	c.Start(ctx)
	c.HandleText(ctx, "tem uma rachadura enorme na minha parede", "")

	snap := c.Snapshot()
	assert.Equal(t, StepLocationMethod, snap.Step)
	assert.Equal(t, []string{"tem uma rachadura enorme na minha parede"}, gw.inferCalls)
	assert.Equal(t, []string{"tem uma rachadura enorme na minha parede"}, gw.analyzeCalls)
	assert.True(t, lastMessage(t, c).LocationPrompt)
}

func TestCategoryFreeText_NoMatchReprompts(t *testing.T) {
	gw := defaultGateway() // inference returns CategoryNone
	c := newTestController(gw, nil)
	ctx := context.Background()

	c.Start(ctx)
	c.HandleText(ctx, "blablabla", "")

	snap := c.Snapshot()
	assert.Equal(t, StepCategory, snap.Step, "failed inference stays in category selection")
	last := lastMessage(t, c)
	assert.Len(t, last.QuickReplies, 7)
	assert.Equal(t, textCategoryReprompt, last.Text)
}

func TestSubcategoryFreeText_ReusesInference(t *testing.T) {
	gw := defaultGateway()
	gw.category = models.CategoryFlooding
	c := newTestController(gw, nil)
	ctx := context.Background()

	c.Start(ctx)
	c.HandleQuickReply(ctx, string(models.CategoryLandslide))
	require.Equal(t, StepSubcategory, c.Snapshot().Step)

	// Free text during sub-category selection goes through the same
	// main-category inference and skips ahead.
	c.HandleText(ctx, "a rua virou um rio", "")
	assert.Equal(t, StepLocationMethod, c.Snapshot().Step)
	assert.Equal(t, []string{"a rua virou um rio"}, gw.inferCalls)
}

func TestSubcategoryFreeText_NoMatchFallsBackToCategorySelection(t *testing.T) {
	gw := defaultGateway() // inference returns CategoryNone
	c := newTestController(gw, nil)
	ctx := context.Background()

	c.Start(ctx)
	c.HandleQuickReply(ctx, string(models.CategoryFlooding))
	require.Equal(t, StepSubcategory, c.Snapshot().Step)

	c.HandleText(ctx, "blablabla", "")
	snap := c.Snapshot()
	assert.Equal(t, StepCategory, snap.Step, "failed inference returns to category selection")
	assert.Len(t, lastMessage(t, c).QuickReplies, 7)

	// The re-prompted main-category options must be selectable.
	before := len(snap.Transcript)
	c.HandleQuickReply(ctx, string(models.CategoryFlooding))
	snap = c.Snapshot()
	assert.Equal(t, StepSubcategory, snap.Step)
	assert.Greater(t, len(snap.Transcript), before, "selecting a re-prompted category must advance the flow")
}

// Scenario: GPS failure is terminal for the attempt but not for the flow.
func TestScenario_GPSFailureThenMap(t *testing.T) {
	gw := defaultGateway()
	locator := geo.StaticLocator{Err: errors.New("position unavailable")}
	c := newTestController(gw, locator)
	ctx := context.Background()

	c.Start(ctx)
	c.HandleText(ctx, "ignored", "") // no match, reprompt
	c.HandleQuickReply(ctx, string(models.CategoryPower))
	c.HandleQuickReply(ctx, "Fios caídos")
	c.HandleText(ctx, "fio estourando faísca", "")
	require.Equal(t, StepLocationMethod, c.Snapshot().Step)

	c.HandleLocationMethod(ctx, LocationGPS)
	snap := c.Snapshot()
	assert.Equal(t, StepLocationMethod, snap.Step, "GPS failure stays on method prompt")
	assert.False(t, snap.WaitingLocation)
	assert.Empty(t, snap.Reports)
	assert.Equal(t, textGPSFailed, lastMessage(t, c).Text)

	// The citizen can still pick the map next.
	c.HandleLocationMethod(ctx, LocationMap)
	snap = c.Snapshot()
	assert.Equal(t, StepLocationMap, snap.Step)
	assert.True(t, snap.MapOpen)

	c.HandleMapPick(ctx, models.Coordinate{Lat: -12.99, Lng: -38.45})
	snap = c.Snapshot()
	assert.Equal(t, StepCompleted, snap.Step)
	assert.False(t, snap.MapOpen)
	require.Len(t, snap.Reports, 1)
	assert.Equal(t, NeighborhoodMap, snap.Reports[0].Neighborhood)
}

func TestMapCancel_ReturnsToMethodSelection(t *testing.T) {
	gw := defaultGateway()
	gw.category = models.CategoryTrees
	c := newTestController(gw, nil)
	ctx := context.Background()

	c.Start(ctx)
	c.HandleText(ctx, "árvore caiu na rua", "")
	c.HandleLocationMethod(ctx, LocationMap)
	require.True(t, c.Snapshot().MapOpen)

	c.HandleMapCancel()
	snap := c.Snapshot()
	assert.Equal(t, StepLocationMethod, snap.Step)
	assert.False(t, snap.MapOpen)
	assert.Empty(t, snap.Reports)
}

func TestLocationText_UsesExtractedCoordinate(t *testing.T) {
	gw := defaultGateway()
	gw.category = models.CategoryFlooding
	c := newTestController(gw, nil)
	ctx := context.Background()

	c.Start(ctx)
	c.HandleText(ctx, "alagou tudo aqui", "")
	c.HandleLocationMethod(ctx, LocationText)
	require.Equal(t, StepLocationText, c.Snapshot().Step)

	c.HandleText(ctx, "perto do mercado da Liberdade", "")
	snap := c.Snapshot()
	assert.Equal(t, StepCompleted, snap.Step)
	require.Len(t, snap.Reports, 1)
	assert.Equal(t, "Liberdade", snap.Reports[0].Neighborhood)
	assert.Equal(t, models.Coordinate{Lat: -12.94, Lng: -38.49}, snap.Reports[0].Coordinate)

	// The geocoding confirmation precedes the success message in the transcript.
	texts := make([]string, 0, len(snap.Transcript))
	for _, m := range snap.Transcript {
		texts = append(texts, m.Text)
	}
	assert.Contains(t, texts, "Registrei o local na Liberdade.")
}

func TestCompleted_NewReportResetsDraft(t *testing.T) {
	gw := defaultGateway()
	gw.category = models.CategoryFlooding
	c := newTestController(gw, geo.StaticLocator{Coord: models.Coordinate{Lat: -12.9, Lng: -38.5}})
	ctx := context.Background()

	c.Start(ctx)
	c.HandleText(ctx, "rua alagada", "")
	c.HandleLocationMethod(ctx, LocationGPS)
	require.Equal(t, StepCompleted, c.Snapshot().Step)

	c.HandleQuickReply(ctx, ActionNewReport)
	snap := c.Snapshot()
	assert.Equal(t, StepCategory, snap.Step)
	assert.Len(t, snap.Reports, 1, "finished reports survive the reset")
	assert.Len(t, lastMessage(t, c).QuickReplies, 7)

	// Second report gets finalization defaults for the untouched fields.
	c.HandleQuickReply(ctx, string(models.CategoryOther))
	require.Equal(t, StepDescription, c.Snapshot().Step, "Outros has no sub-categories")
}

func TestCompleted_DashboardSwitchesSurface(t *testing.T) {
	gw := defaultGateway()
	gw.category = models.CategoryFlooding
	c := newTestController(gw, geo.StaticLocator{Coord: models.Coordinate{Lat: -12.9, Lng: -38.5}})
	ctx := context.Background()

	c.Start(ctx)
	c.HandleText(ctx, "rua alagada", "")
	c.HandleLocationMethod(ctx, LocationGPS)

	c.HandleQuickReply(ctx, ActionDashboard)
	snap := c.Snapshot()
	assert.Equal(t, SurfaceDashboard, snap.Surface)
	assert.Equal(t, StepCompleted, snap.Step, "dialogue stays completed until a new report starts")
}

func TestFinalize_AppliesDefaults(t *testing.T) {
	// Drive a draft with no analysis (gateway analysis empty) through the map
	// path without ever writing a description.
	gw := defaultGateway()
	c := newTestController(gw, nil)
	ctx := context.Background()

	c.Start(ctx)
	c.HandleQuickReply(ctx, string(models.CategoryFlooding))
	c.HandleQuickReply(ctx, "Rua alagada")
	// Jump straight to the location prompt by describing with empty text.
	gw.analysis = ai.Analysis{}
	c.HandleText(ctx, "", "")
	c.HandleLocationMethod(ctx, LocationMap)
	c.HandleMapPick(ctx, models.Coordinate{Lat: -12.9, Lng: -38.5})

	snap := c.Snapshot()
	require.Len(t, snap.Reports, 1)
	got := snap.Reports[0]
	assert.Equal(t, models.SeverityMin, got.Severity, "unset severity defaults to 1")
	assert.Equal(t, defaultAnalysis, got.Analysis)
	assert.Equal(t, "[Rua alagada] ", got.Description)
}

func TestTranscript_OnlyGrows(t *testing.T) {
	gw := defaultGateway()
	gw.category = models.CategoryFlooding

	var lengths []int
	seq := 0
	c := NewController(Options{
		Gateway:    gw,
		Locator:    geo.StaticLocator{Coord: models.Coordinate{Lat: -12.9, Lng: -38.5}},
		Clock:      &instantClock{},
		ReplyDelay: time.Millisecond,
		Listener:   func(s Snapshot) { lengths = append(lengths, len(s.Transcript)) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%04d", seq)
		},
	})
	ctx := context.Background()

	c.Start(ctx)
	c.HandleText(ctx, "rua alagada", "")
	c.HandleLocationMethod(ctx, LocationGPS)
	c.HandleQuickReply(ctx, ActionNewReport)

	for i := 1; i < len(lengths); i++ {
		assert.GreaterOrEqual(t, lengths[i], lengths[i-1], "transcript must never shrink")
	}

	// Message IDs are unique across the whole transcript.
	seen := map[string]bool{}
	for _, m := range c.Snapshot().Transcript {
		assert.False(t, seen[m.ID], "duplicate message id %s", m.ID)
		seen[m.ID] = true
	}
}

func TestEventsOutsideTheirStepAreIgnored(t *testing.T) {
	gw := defaultGateway()
	c := newTestController(gw, nil)
	ctx := context.Background()

	c.Start(ctx)

	before := len(c.Snapshot().Transcript)
	c.HandleLocationMethod(ctx, LocationGPS)
	c.HandleMapPick(ctx, models.Coordinate{Lat: 1, Lng: 1})
	c.HandleMapCancel()
	c.HandleQuickReply(ctx, "not-a-category")

	snap := c.Snapshot()
	assert.Equal(t, before, len(snap.Transcript))
	assert.Equal(t, StepCategory, snap.Step)
	assert.Empty(t, snap.Reports)
}
