package flow

import (
	"github.com/urbanalert/pkg/models"
)

// Surface is the presentation surface currently active for the session
type Surface string

const (
	SurfaceChat      Surface = "chat"
	SurfaceDashboard Surface = "dashboard"
)

// session is the single authoritative state for one conversation: the
// append-only transcript, the in-flight draft, the finished report
// collection, and the UI-blocking flags. Owned exclusively by the Controller;
// surfaces only ever see copies via Snapshot.
type session struct {
	transcript      []models.Message
	draft           models.ReportDraft
	reports         []models.Report
	typing          bool
	waitingLocation bool
	mapOpen         bool
	surface         Surface
}

// Snapshot is a read-only copy of the session handed to presentation
// surfaces. Mutating a snapshot has no effect on the session.
type Snapshot struct {
	Step            Step
	Surface         Surface
	Transcript      []models.Message
	Reports         []models.Report
	Typing          bool
	WaitingLocation bool
	MapOpen         bool
}

func (s *session) snapshot(step Step) Snapshot {
	transcript := make([]models.Message, len(s.transcript))
	copy(transcript, s.transcript)
	reports := make([]models.Report, len(s.reports))
	copy(reports, s.reports)

	return Snapshot{
		Step:            step,
		Surface:         s.surface,
		Transcript:      transcript,
		Reports:         reports,
		Typing:          s.typing,
		WaitingLocation: s.waitingLocation,
		MapOpen:         s.mapOpen,
	}
}
