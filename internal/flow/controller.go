package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/urbanalert/internal/ai"
	"github.com/urbanalert/internal/geo"
	"github.com/urbanalert/pkg/models"
)

// Gateway is the slice of the AI classification gateway the controller
// depends on. Satisfied by *ai.Gateway; tests script it.
type Gateway interface {
	Greeting(ctx context.Context) string
	AnalyzeDescription(ctx context.Context, description string, category models.Category) ai.Analysis
	ExtractLocation(ctx context.Context, text string) ai.LocationGuess
	InferCategory(ctx context.Context, text string) models.Category
}

// Listener receives a fresh snapshot after every handled event so
// presentation surfaces can re-render
type Listener func(Snapshot)

// Options configures a Controller
type Options struct {
	Gateway    Gateway
	Locator    geo.Locator
	Clock      Clock
	ReplyDelay time.Duration
	Listener   Listener
	Now        func() time.Time
	NewID      func() string
}

// Controller is the dialogue flow state machine. It owns the session state
// and is the only writer of the transcript, the draft, and the report
// collection. Handlers lock for their whole body, so the transcript append
// and state transition for one user action never interleave with another.
type Controller struct {
	mu sync.Mutex

	gateway    Gateway
	locator    geo.Locator
	clock      Clock
	replyDelay time.Duration
	listener   Listener
	now        func() time.Time
	newID      func() string

	step Step
	sess session
}

// NewController wires a controller. Gateway is required; everything else has
// a sensible default.
func NewController(opts Options) *Controller {
	c := &Controller{
		gateway:    opts.Gateway,
		locator:    opts.Locator,
		clock:      opts.Clock,
		replyDelay: opts.ReplyDelay,
		listener:   opts.Listener,
		now:        opts.Now,
		newID:      opts.NewID,
		step:       StepGreeting,
	}
	c.sess.surface = SurfaceChat

	if c.clock == nil {
		c.clock = RealClock()
	}
	if c.replyDelay == 0 {
		c.replyDelay = 800 * time.Millisecond
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Snapshot returns a read-only copy of the current session state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.snapshot(c.step)
}

// ShowChat switches the active surface back to the conversation
func (c *Controller) ShowChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.surface = SurfaceChat
	c.notify()
}

// Start bootstraps the conversation: greeting, then the category prompt.
// It is the only transition not driven by user input and only fires once,
// while the transcript is still empty.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepGreeting || len(c.sess.transcript) > 0 {
		return
	}

	c.withTyping(func() {
		greeting := c.gateway.Greeting(ctx)
		c.appendBot(greeting)
		c.clock.Sleep(ctx, c.replyDelay)
		c.promptCategories(textCategoryPrompt)
	})
	c.transition(StepCategory)
	c.notify()
}

// HandleText processes free text (optionally carrying an attached image)
// submitted by the citizen
func (c *Controller) HandleText(ctx context.Context, text, imageRef string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.step {
	case StepCategory, StepSubcategory:
		c.appendUser(text, imageRef)
		c.withTyping(func() { c.classifyFreeText(ctx, text, imageRef) })
	case StepDescription:
		c.appendUser(text, imageRef)
		c.withTyping(func() { c.captureDescription(ctx, text, imageRef) })
	case StepLocationText:
		c.appendUser(text, "")
		c.withTyping(func() {
			guess := c.gateway.ExtractLocation(ctx, text)
			c.appendBot(guess.Confirmation)
			c.finalize(ctx, guess.Coordinate, guess.Neighborhood)
		})
	default:
		log.Debug().Stringer("step", c.step).Msg("Free text ignored in current step")
		return
	}
	c.notify()
}

// HandleQuickReply processes a tapped quick-reply option
func (c *Controller) HandleQuickReply(ctx context.Context, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.step {
	case StepCategory:
		category := models.Category(value)
		if !models.IsValidCategory(category) {
			log.Debug().Str("value", value).Msg("Quick reply is not a known category")
			return
		}
		c.appendUser(value, "")
		c.sess.draft.Category = category

		if subs := models.SubCategories(category); len(subs) > 0 {
			c.withTyping(func() { c.promptSubcategories(category, subs) })
			c.transition(StepSubcategory)
		} else {
			c.withTyping(func() { c.appendBot(textDetailPrompt) })
			c.transition(StepDescription)
		}

	case StepSubcategory:
		if !isSubCategory(c.sess.draft.Category, value) {
			log.Debug().Str("value", value).Msg("Quick reply is not a registered sub-category")
			return
		}
		c.appendUser(value, "")
		c.sess.draft.SubCategory = value
		c.withTyping(func() { c.appendBot(textDetailPrompt) })
		c.transition(StepDescription)

	case StepCompleted:
		switch value {
		case ActionNewReport:
			c.sess.draft.Reset()
			c.withTyping(func() { c.promptCategories(textCategoryPrompt) })
			c.transition(StepCategory)
		case ActionDashboard:
			c.sess.surface = SurfaceDashboard
		}

	default:
		log.Debug().Stringer("step", c.step).Msg("Quick reply ignored in current step")
		return
	}
	c.notify()
}

// HandleLocationMethod processes the dedicated location-method selection
// (GPS, map, or free text)
func (c *Controller) HandleLocationMethod(ctx context.Context, method LocationMethod) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepLocationMethod {
		log.Debug().Stringer("step", c.step).Msg("Location method ignored in current step")
		return
	}

	switch method {
	case LocationGPS:
		c.acquireGPS(ctx)
	case LocationText:
		c.appendUser(textUserText, "")
		c.withTyping(func() { c.appendBot(textLocationByText) })
		c.transition(StepLocationText)
	case LocationMap:
		c.appendUser(textUserMap, "")
		c.sess.mapOpen = true
		c.transition(StepLocationMap)
	}
	c.notify()
}

// HandleMapPick processes the single coordinate emitted by the map picker
func (c *Controller) HandleMapPick(ctx context.Context, coord models.Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepLocationMap {
		return
	}

	c.sess.mapOpen = false
	c.appendUser(textUserMapPick, "")
	c.withTyping(func() { c.finalize(ctx, coord, NeighborhoodMap) })
	c.notify()
}

// HandleMapCancel closes the map picker without a selection and hands
// control back to the method prompt
func (c *Controller) HandleMapCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepLocationMap {
		return
	}

	c.sess.mapOpen = false
	c.transition(StepLocationMethod)
	c.notify()
}

// classifyFreeText handles the free-text branch shared by category and
// sub-category selection: infer the category, and on success skip the
// remaining refinement steps and go straight to location.
func (c *Controller) classifyFreeText(ctx context.Context, text, imageRef string) {
	category := c.gateway.InferCategory(ctx, text)
	if category == models.CategoryNone {
		// The re-prompt offers main categories, so selection must land back
		// in category handling even when the failure happened one step later.
		c.promptCategories(textCategoryReprompt)
		c.transition(StepCategory)
		return
	}

	c.sess.draft.Category = category
	c.sess.draft.Description = text
	if imageRef != "" {
		c.sess.draft.ImageRef = imageRef
	}

	analysis := c.gateway.AnalyzeDescription(ctx, text, category)
	c.sess.draft.Severity = analysis.Severity
	c.sess.draft.Analysis = analysis.Response

	c.appendBot(analysis.Response)
	c.clock.Sleep(ctx, c.replyDelay)
	c.promptLocation()
	c.transition(StepLocationMethod)
}

// captureDescription builds the full description (sub-category prefixed in
// brackets when present), scores it, and moves on to location
func (c *Controller) captureDescription(ctx context.Context, text, imageRef string) {
	full := text
	if c.sess.draft.SubCategory != "" {
		full = fmt.Sprintf("[%s] %s", c.sess.draft.SubCategory, text)
	}

	c.sess.draft.Description = full
	if imageRef != "" {
		c.sess.draft.ImageRef = imageRef
	}

	analysis := c.gateway.AnalyzeDescription(ctx, full, c.sess.draft.Category)
	c.sess.draft.Severity = analysis.Severity
	c.sess.draft.Analysis = analysis.Response

	c.appendBot(analysis.Response)
	c.clock.Sleep(ctx, c.replyDelay)
	c.promptLocation()
	c.transition(StepLocationMethod)
}

// acquireGPS requests a one-shot device fix. The waiting flag is up for the
// whole acquisition so surfaces disable conflicting input; a failure is
// terminal for this attempt and leaves the citizen on the method prompt.
func (c *Controller) acquireGPS(ctx context.Context) {
	if c.locator == nil {
		c.appendBot(textGPSFailed)
		return
	}

	c.sess.waitingLocation = true
	c.notify()

	coord, err := c.locator.Locate(ctx)
	c.sess.waitingLocation = false

	if err != nil {
		log.Warn().Err(err).Msg("GPS acquisition failed")
		c.appendBot(textGPSFailed)
		return
	}

	c.appendUser(textUserGPS, "")
	c.withTyping(func() { c.finalize(ctx, coord, NeighborhoodGPS) })
}

// finalize promotes the draft into an immutable Report, appends it to the
// collection, and runs the post-completion script. All three location paths
// end here.
func (c *Controller) finalize(ctx context.Context, coord models.Coordinate, neighborhood string) {
	draft := c.sess.draft

	category := draft.Category
	if category == models.CategoryNone {
		category = models.CategoryOther
	}
	severity := draft.Severity
	if severity == 0 {
		severity = models.SeverityMin
	}
	analysis := draft.Analysis
	if analysis == "" {
		analysis = defaultAnalysis
	}
	description := draft.Description
	if description == "" {
		description = draft.SubCategory
	}
	if description == "" {
		description = defaultDescription
	}

	report := models.Report{
		ID:           c.newID(),
		Category:     category,
		SubCategory:  draft.SubCategory,
		Description:  description,
		Coordinate:   coord,
		Neighborhood: neighborhood,
		CreatedAt:    c.now(),
		Severity:     severity,
		Analysis:     analysis,
		Status:       models.StatusPending,
		ImageRef:     draft.ImageRef,
	}
	c.sess.reports = append(c.sess.reports, report)
	c.sess.draft.Reset()

	log.Info().
		Str("report_id", report.ID).
		Str("category", string(report.Category)).
		Int("severity", report.Severity).
		Str("neighborhood", report.Neighborhood).
		Msg("Report finalized")

	c.clock.Sleep(ctx, c.replyDelay)
	c.appendBot(textReportCreated)
	c.clock.Sleep(ctx, c.replyDelay)
	c.appendBotWithReplies(textWhatNext, []models.QuickReply{
		{Label: "Registrar nova ocorrência", Value: ActionNewReport},
		{Label: "Ver painel de ocorrências", Value: ActionDashboard},
	}, false)
	c.transition(StepCompleted)
}

// prompt helpers

func (c *Controller) promptCategories(lead string) {
	options := make([]models.QuickReply, 0, len(models.Categories()))
	for _, cat := range models.Categories() {
		options = append(options, models.QuickReply{Label: string(cat), Value: string(cat)})
	}
	c.appendBotWithReplies(lead, options, false)
}

func (c *Controller) promptSubcategories(category models.Category, subs []string) {
	options := make([]models.QuickReply, 0, len(subs))
	for _, s := range subs {
		options = append(options, models.QuickReply{Label: s, Value: s})
	}
	lead := fmt.Sprintf("Entendi, %s. Qual opção descreve melhor a situação?", category)
	c.appendBotWithReplies(lead, options, false)
}

func (c *Controller) promptLocation() {
	c.appendBotWithReplies(textLocationPrompt, nil, true)
}

// transcript helpers

func (c *Controller) appendBot(text string) {
	c.appendBotWithReplies(text, nil, false)
}

func (c *Controller) appendBotWithReplies(text string, replies []models.QuickReply, locationPrompt bool) {
	c.sess.transcript = append(c.sess.transcript, models.Message{
		ID:             c.newID(),
		Sender:         models.SenderBot,
		Text:           text,
		CreatedAt:      c.now(),
		QuickReplies:   replies,
		LocationPrompt: locationPrompt,
	})
}

func (c *Controller) appendUser(text, imageRef string) {
	c.sess.transcript = append(c.sess.transcript, models.Message{
		ID:        c.newID(),
		Sender:    models.SenderUser,
		Text:      text,
		CreatedAt: c.now(),
		ImageRef:  imageRef,
	})
}

// withTyping keeps the typing flag up while a handler runs its suspending
// segments (gateway calls, scripted delays)
func (c *Controller) withTyping(fn func()) {
	c.sess.typing = true
	c.notify()
	fn()
	c.sess.typing = false
}

func (c *Controller) transition(next Step) {
	if next == c.step {
		return
	}
	log.Debug().Stringer("from", c.step).Stringer("to", next).Msg("Flow transition")
	c.step = next
}

func (c *Controller) notify() {
	if c.listener != nil {
		c.listener(c.sess.snapshot(c.step))
	}
}

func isSubCategory(category models.Category, value string) bool {
	for _, s := range models.SubCategories(category) {
		if s == value {
			return true
		}
	}
	return false
}
