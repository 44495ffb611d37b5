package ai

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/urbanalert/internal/llm"
	"github.com/urbanalert/pkg/models"
)

// Gateway wraps the four classification operations the dialogue flow needs.
// Every operation degrades to a fixed fallback on any failure — a citizen
// mid-report is never blocked by a model outage, so none of these return an
// error.
type Gateway struct {
	client   llm.Client // nil in offline mode; every call falls back
	city     string
	fallback models.Coordinate
}

// Analysis is the result of scoring a free-text hazard description
type Analysis struct {
	Response string `json:"response"`
	Severity int    `json:"severity"`
}

// LocationGuess is the result of geocoding free location text
type LocationGuess struct {
	Neighborhood string            `json:"neighborhood"`
	Coordinate   models.Coordinate `json:"coordinate"`
	Confirmation string            `json:"confirmation"`
}

// Fixed fallbacks, one per operation
const (
	FallbackGreeting = "Olá! Sou o assistente da Defesa Civil. Estou aqui para " +
		"registrar ocorrências de risco na cidade. Vamos começar?"
	FallbackAnalysis = "Obrigado pelo relato. Sua ocorrência foi registrada e " +
		"nossa equipe vai avaliá-la o mais rápido possível. Mantenha distância da área de risco."
	FallbackSeverity     = 3
	FallbackNeighborhood = "Centro"
	FallbackConfirmation = "Não consegui identificar o local exato, então registrei " +
		"a ocorrência no centro da cidade. Desculpe o transtorno."
)

// NewGateway builds a gateway over the given client. A nil client puts the
// gateway in offline mode.
func NewGateway(client llm.Client, city string, cityCenter models.Coordinate) *Gateway {
	return &Gateway{client: client, city: city, fallback: cityCenter}
}

// Greeting generates the opening bot message
func (g *Gateway) Greeting(ctx context.Context) string {
	if g.client == nil {
		return FallbackGreeting
	}

	text, err := g.client.GenerateText(ctx, greetingPrompt(g.city))
	if err != nil || strings.TrimSpace(text) == "" {
		log.Warn().Err(err).Msg("Greeting generation failed, using canned greeting")
		return FallbackGreeting
	}
	return strings.TrimSpace(text)
}

// AnalyzeDescription scores a hazard description for the selected category,
// returning a reassurance text and a severity between 1 and 5
func (g *Gateway) AnalyzeDescription(ctx context.Context, description string, category models.Category) Analysis {
	fallback := Analysis{Response: FallbackAnalysis, Severity: FallbackSeverity}
	if g.client == nil {
		return fallback
	}

	var parsed struct {
		Response string `json:"response"`
		Severity int    `json:"severity"`
	}
	if err := g.client.GenerateStructured(ctx, analyzePrompt(description, category), &parsed); err != nil {
		log.Warn().Err(err).Str("category", string(category)).Msg("Description analysis failed, using fallback")
		return fallback
	}
	if strings.TrimSpace(parsed.Response) == "" {
		log.Warn().Msg("Description analysis returned empty response, using fallback")
		return fallback
	}

	return Analysis{
		Response: strings.TrimSpace(parsed.Response),
		Severity: models.ClampSeverity(parsed.Severity),
	}
}

// ExtractLocation geocodes free location text into a neighborhood, a
// coordinate, and a confirmation sentence for the citizen
func (g *Gateway) ExtractLocation(ctx context.Context, text string) LocationGuess {
	fallback := LocationGuess{
		Neighborhood: FallbackNeighborhood,
		Coordinate:   g.fallback,
		Confirmation: FallbackConfirmation,
	}
	if g.client == nil {
		return fallback
	}

	var parsed struct {
		Neighborhood string  `json:"neighborhood"`
		Lat          float64 `json:"lat"`
		Lng          float64 `json:"lng"`
		Confirmation string  `json:"confirmation"`
	}
	if err := g.client.GenerateStructured(ctx, locationPrompt(g.city, text), &parsed); err != nil {
		log.Warn().Err(err).Msg("Location extraction failed, using city center")
		return fallback
	}
	if parsed.Neighborhood == "" || !validCoordinate(parsed.Lat, parsed.Lng) {
		log.Warn().
			Str("neighborhood", parsed.Neighborhood).
			Float64("lat", parsed.Lat).
			Float64("lng", parsed.Lng).
			Msg("Location extraction returned unusable payload, using city center")
		return fallback
	}

	confirmation := strings.TrimSpace(parsed.Confirmation)
	if confirmation == "" {
		confirmation = "Localização registrada: " + parsed.Neighborhood + "."
	}

	return LocationGuess{
		Neighborhood: parsed.Neighborhood,
		Coordinate:   models.Coordinate{Lat: parsed.Lat, Lng: parsed.Lng},
		Confirmation: confirmation,
	}
}

// InferCategory maps free text onto the closed category set. Anything the
// model returns outside that set, and any failure, yields CategoryNone.
func (g *Gateway) InferCategory(ctx context.Context, text string) models.Category {
	if g.client == nil {
		return models.CategoryNone
	}

	var parsed struct {
		Category string `json:"category"`
	}
	if err := g.client.GenerateStructured(ctx, inferCategoryPrompt(text), &parsed); err != nil {
		log.Warn().Err(err).Msg("Category inference failed")
		return models.CategoryNone
	}

	candidate := strings.TrimSpace(parsed.Category)
	for _, known := range models.Categories() {
		if strings.EqualFold(candidate, string(known)) {
			return known
		}
	}

	log.Debug().Str("candidate", candidate).Msg("Inferred category not in the fixed set")
	return models.CategoryNone
}

// validCoordinate rejects out-of-range and null-island coordinates
func validCoordinate(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
