package flow

// Step is the dialogue state: what the bot is waiting for next. The flow is
// a linear progression with two branch points, one at category selection
// (free text can skip straight to location) and one at location method.
type Step int

const (
	StepGreeting Step = iota
	StepCategory
	StepSubcategory
	StepDescription
	StepLocationMethod
	StepLocationText
	StepLocationMap
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepGreeting:
		return "greeting"
	case StepCategory:
		return "category_selection"
	case StepSubcategory:
		return "subcategory_selection"
	case StepDescription:
		return "description"
	case StepLocationMethod:
		return "location_method_selection"
	case StepLocationText:
		return "location_input_text"
	case StepLocationMap:
		return "location_input_map"
	case StepCompleted:
		return "completed"
	}
	return "unknown"
}

// LocationMethod is one of the three ways a citizen can provide the report
// location
type LocationMethod string

const (
	LocationGPS  LocationMethod = "gps"
	LocationMap  LocationMethod = "map"
	LocationText LocationMethod = "text"
)

// Post-completion quick-reply values
const (
	ActionNewReport = "new_report"
	ActionDashboard = "dashboard"
)
