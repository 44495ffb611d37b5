package models

import (
	"time"
)

// Sender identifies who produced a transcript message
type Sender string

const (
	SenderBot    Sender = "bot"
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Category is one of the fixed hazard categories offered to the citizen.
// CategoryOther is the catch-all; CategoryNone marks a failed inference.
type Category string

const (
	CategoryFlooding   Category = "Alagamentos e Enchentes"
	CategoryLandslide  Category = "Deslizamentos de Terra"
	CategoryStructural Category = "Problemas Estruturais"
	CategoryTrees      Category = "Árvores e Vegetação"
	CategoryRoads      Category = "Vias Públicas"
	CategoryPower      Category = "Rede Elétrica"
	CategoryOther      Category = "Outros"

	CategoryNone Category = ""
)

// Categories returns the main-category option set in prompt order
func Categories() []Category {
	return []Category{
		CategoryFlooding,
		CategoryLandslide,
		CategoryStructural,
		CategoryTrees,
		CategoryRoads,
		CategoryPower,
		CategoryOther,
	}
}

// IsValidCategory reports whether c is a member of the closed category set.
// Values coming back from category inference must pass this check before the
// flow accepts them.
func IsValidCategory(c Category) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// subCategories maps each main category to its registered refinement options.
// Categories without an entry skip the sub-category step entirely.
var subCategories = map[Category][]string{
	CategoryFlooding: {
		"Bueiro entupido",
		"Rua alagada",
		"Casa invadida pela água",
		"Córrego transbordando",
		"Outro alagamento",
	},
	CategoryLandslide: {
		"Encosta com rachaduras",
		"Deslizamento ocorrido",
		"Risco de deslizamento",
		"Muro de contenção danificado",
	},
	CategoryStructural: {
		"Rachadura em imóvel",
		"Prédio interditado",
		"Risco de desabamento",
	},
	CategoryTrees: {
		"Árvore caída",
		"Árvore com risco de queda",
		"Galhos na fiação",
	},
	CategoryRoads: {
		"Buraco na via",
		"Asfalto cedendo",
		"Ponte ou viaduto danificado",
	},
	CategoryPower: {
		"Poste danificado",
		"Fios caídos",
	},
}

// SubCategories returns the registered sub-category labels for a category,
// nil when the category has none
func SubCategories(c Category) []string {
	return subCategories[c]
}

// Severity bounds for the 1-5 hazard-risk scale
const (
	SeverityMin = 1
	SeverityMax = 5
)

// ClampSeverity forces a model-provided severity into the valid 1-5 range
func ClampSeverity(s int) int {
	if s < SeverityMin {
		return SeverityMin
	}
	if s > SeverityMax {
		return SeverityMax
	}
	return s
}

// Status is the lifecycle state of a finalized report. Only the initial
// value exists in this system; triage happens elsewhere.
type Status string

const StatusPending Status = "pendente"

// Coordinate is a latitude/longitude pair, source-agnostic (device GPS,
// AI-geocoded text, or map tap)
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// QuickReply is one selectable option offered by the bot in lieu of free text
type QuickReply struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Message is one immutable transcript entry. The transcript is append-only;
// messages are never edited or deleted once created.
type Message struct {
	ID             string       `json:"id"`
	Sender         Sender       `json:"sender"`
	Text           string       `json:"text"`
	CreatedAt      time.Time    `json:"created_at"`
	QuickReplies   []QuickReply `json:"quick_replies,omitempty"`
	LocationPrompt bool         `json:"location_prompt,omitempty"`
	ImageRef       string       `json:"image_ref,omitempty"`
}

// ReportDraft accumulates the report under construction. It lives from
// category selection until the location is resolved, then resets to zero.
type ReportDraft struct {
	Category    Category
	SubCategory string
	Description string
	Severity    int
	Analysis    string
	ImageRef    string
}

// Reset clears the draft for the next report cycle
func (d *ReportDraft) Reset() {
	*d = ReportDraft{}
}

// Report is a finalized citizen hazard report. Created exactly once by the
// flow controller from a completed draft plus a resolved coordinate; never
// mutated afterwards.
type Report struct {
	ID           string     `json:"id"`
	Category     Category   `json:"category"`
	SubCategory  string     `json:"sub_category,omitempty"`
	Description  string     `json:"description"`
	Coordinate   Coordinate `json:"coordinate"`
	Neighborhood string     `json:"neighborhood,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Severity     int        `json:"severity"`
	Analysis     string     `json:"analysis"`
	Status       Status     `json:"status"`
	ImageRef     string     `json:"image_ref,omitempty"`
}
