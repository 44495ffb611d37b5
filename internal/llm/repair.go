package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"
)

// RepairStats records what happened while turning raw model output into
// parseable JSON
type RepairStats struct {
	OriginalBytes int           `json:"original_bytes"`
	RepairedBytes int           `json:"repaired_bytes"`
	RepairTime    time.Duration `json:"repair_time"`
	WasRepaired   bool          `json:"was_repaired"`
}

// ParseStructured extracts the JSON payload from raw model output, repairs it
// if malformed, and unmarshals it into target. Models routinely wrap JSON in
// prose or markdown fences and emit trailing commas or unquoted keys; all of
// that is handled here so callers only see a typed value or an error.
func ParseStructured(raw string, target any) (RepairStats, error) {
	start := time.Now()
	stats := RepairStats{OriginalBytes: len(raw)}

	payload := ExtractJSON(raw)
	if payload == "" {
		stats.RepairTime = time.Since(start)
		return stats, fmt.Errorf("no JSON found in model output")
	}

	if err := json.Unmarshal([]byte(payload), target); err == nil {
		stats.RepairedBytes = len(payload)
		stats.RepairTime = time.Since(start)
		return stats, nil
	}

	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		stats.RepairTime = time.Since(start)
		return stats, fmt.Errorf("JSON repair failed: %w", err)
	}
	stats.WasRepaired = true
	stats.RepairedBytes = len(repaired)

	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		stats.RepairTime = time.Since(start)
		return stats, fmt.Errorf("JSON parsing failed after repair: %w", err)
	}

	stats.RepairTime = time.Since(start)
	log.Debug().
		Int("original_bytes", stats.OriginalBytes).
		Int("repaired_bytes", stats.RepairedBytes).
		Dur("repair_time", stats.RepairTime).
		Msg("Model output repaired before parsing")

	return stats, nil
}

// ExtractJSON pulls the JSON object or array out of mixed text/JSON output
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		return raw
	}

	// Markdown code fences first
	if strings.Contains(raw, "```") {
		var picked []string
		inFence := false
		for _, line := range strings.Split(raw, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inFence = !inFence
				continue
			}
			if inFence {
				picked = append(picked, line)
			}
		}
		if len(picked) > 0 {
			return strings.TrimSpace(strings.Join(picked, "\n"))
		}
	}

	// Otherwise scan for the first balanced object or array
	start := strings.IndexAny(raw, "{[")
	if start == -1 {
		return ""
	}

	open := raw[start]
	var closing byte = '}'
	if open == '[' {
		closing = ']'
	}

	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}

	// Truncated output; let the repair pass close it
	return raw[start:]
}
