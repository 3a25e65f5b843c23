package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgarridoc/citabot/internal/intent"
	"github.com/dgarridoc/citabot/internal/llm"
	"github.com/dgarridoc/citabot/internal/normalize"
	"github.com/dgarridoc/citabot/internal/observability/metrics"
	"github.com/dgarridoc/citabot/internal/payload"
	"github.com/dgarridoc/citabot/internal/session"
	"github.com/dgarridoc/citabot/internal/slotfill"
	"github.com/dgarridoc/citabot/pkg/logging"
)

const (
	dispatchErrorReply = "Ha ocurrido un error al procesar tu solicitud. Inténtalo de nuevo."
	llmDownReply       = "Ahora mismo no puedo atenderte. Inténtalo de nuevo en unos minutos."

	askEmailForConsult = "¿Cuál es tu email para buscar tus citas?"
	askCancelTarget    = "¿Qué cita deseas cancelar? (indica fecha o servicio)"
	askModifyTarget    = "¿De qué fecha es la cita que quieres cambiar?"
	askModifySchedule  = "¿A qué nueva fecha y hora quieres mover la cita?"
)

// dispatcher executes a completed payload and returns the user-visible
// confirmation.
type dispatcher interface {
	Dispatch(ctx context.Context, p payload.Payload) (string, error)
}

// Manager runs one conversation turn: deterministic rules first, the language
// model only as last resort. All user-visible text is Spanish.
type Manager struct {
	dispatch dispatcher
	client   llm.Client
	filler   *slotfill.Filler
	metrics  *metrics.ChatMetrics
	logger   *logging.Logger
	now      func() time.Time

	maxTokens   int32
	temperature float32
	docLimit    int
}

// Options tunes the generative fallback.
type Options struct {
	MaxTokens   int32
	Temperature float32
	DocLimit    int // max characters of document context per prompt
	Now         func() time.Time
}

// NewManager creates a dialogue manager. client may be nil, in which case
// turns that would need the model get the unavailable reply.
func NewManager(d dispatcher, client llm.Client, m *metrics.ChatMetrics, logger *logging.Logger, opts Options) *Manager {
	if d == nil {
		panic("dialogue: dispatcher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	if opts.DocLimit <= 0 {
		opts.DocLimit = 4000
	}
	return &Manager{
		dispatch:    d,
		client:      client,
		filler:      slotfill.New(opts.Now),
		metrics:     m,
		logger:      logger,
		now:         opts.Now,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		docLimit:    opts.DocLimit,
	}
}

// Process handles one user message within the session and returns the reply.
// history is the prior conversation (already stripped of JSON blocks);
// docText is the uploaded document content, used only when the user asks.
func (m *Manager) Process(ctx context.Context, sess *session.Session, text string, history []llm.Message, docText string) string {
	sess.Lock()
	defer sess.Unlock()
	sess.Touch(m.now())

	state := sess.State()
	lower := strings.ToLower(strings.TrimSpace(text))

	dateISO := normalize.ExtractDate(lower, m.now())
	timeISO := normalize.ExtractTime(lower)
	service := DetectService(lower)

	// A pending slot question is answered first, but only when the turn
	// carries no action keywords. "mejor quiero una cita de cardiólogo" is a
	// restated request, not a name or a note.
	keywordIntent := intent.Detect(lower, nil)
	if state.Expected != "" && keywordIntent == intent.None {
		answer := text
		if slotfill.Field(state.Expected) == slotfill.FieldService && service != "" {
			answer = service
		}
		m.filler.Advance(state, answer)
	}

	state.Merge(session.Partial{Service: service, Date: dateISO, Time: timeISO})

	it := intent.Detect(lower, state)

	switch it {
	case intent.Consult:
		return m.consult(ctx, sess)
	case intent.Cancel:
		return m.cancel(ctx, sess, dateISO, service)
	case intent.Modify:
		return m.modify(ctx, sess, dateISO, timeISO)
	case intent.Create:
		if state.IsComplete() {
			m.metrics.ObserveTurn(string(it), "rule")
			return m.dispatchCreate(ctx, sess)
		}
		m.metrics.ObserveTurn(string(it), "rule")
		next := nextCreateField(state)
		state.Expected = string(next)
		return m.createQuestion(state, next)
	}

	// No rule fired. A complete state still dispatches without the model.
	if state.IsComplete() {
		m.metrics.ObserveTurn(string(intent.Create), "rule")
		return m.dispatchCreate(ctx, sess)
	}

	return m.fallbackToLLM(ctx, sess, text, lower, dateISO, timeISO, history, docText)
}

func (m *Manager) consult(ctx context.Context, sess *session.Session) string {
	m.metrics.ObserveTurn(string(intent.Consult), "rule")

	filter := sess.Identity.Email
	if filter == "" {
		filter = sess.State().Email
	}
	if filter == "" {
		return askEmailForConsult
	}

	msg, err := m.dispatch.Dispatch(ctx, payload.Consult{Filter: filter})
	if err != nil {
		m.logger.Error("consult dispatch failed", "error", err, "session_id", sess.ID)
		return dispatchErrorReply
	}
	return msg
}

func (m *Manager) cancel(ctx context.Context, sess *session.Session, dateISO, service string) string {
	m.metrics.ObserveTurn(string(intent.Cancel), "rule")

	filter := dateISO
	if filter == "" {
		filter = service
	}
	if filter == "" {
		return askCancelTarget
	}

	msg, err := m.dispatch.Dispatch(ctx, payload.Cancel{Filter: filter})
	if err != nil {
		m.logger.Error("cancel dispatch failed", "error", err, "session_id", sess.ID)
		return dispatchErrorReply
	}
	// The booked slot is gone, so an identical re-booking is legitimate again.
	sess.ClearDispatchGuard()
	return msg
}

func (m *Manager) modify(ctx context.Context, sess *session.Session, dateISO, timeISO string) string {
	m.metrics.ObserveTurn(string(intent.Modify), "rule")

	if dateISO == "" {
		return askModifyTarget
	}
	if timeISO == "" {
		return askModifySchedule
	}

	// One date in the utterance serves both as the lookup filter and the new
	// date: "cambia mi cita del 10/12 a las 11:30" keeps the day, moves the
	// time.
	msg, err := m.dispatch.Dispatch(ctx, payload.Modify{
		Filter:  dateISO,
		NewDate: dateISO,
		NewTime: timeISO,
	})
	if err != nil {
		m.logger.Error("modify dispatch failed", "error", err, "session_id", sess.ID)
		return dispatchErrorReply
	}
	return msg
}

func (m *Manager) dispatchCreate(ctx context.Context, sess *session.Session) string {
	state := sess.State()
	p := payload.Create{
		Name:       state.Name,
		Email:      state.Email,
		Service:    state.Service,
		Date:       state.Date,
		Time:       state.Time,
		Notes:      state.Notes,
		Confidence: 0.95,
	}

	fp := fingerprint(p)
	if sess.AlreadyDispatched(fp) {
		return "Esa cita ya está registrada."
	}

	msg, err := m.dispatch.Dispatch(ctx, p)
	if err != nil {
		m.logger.Error("create dispatch failed", "error", err, "session_id", sess.ID)
		return dispatchErrorReply
	}

	sess.MarkDispatched(fp)
	state.Reset()
	// Identity survives the reset so the next booking never re-asks for it.
	state.Merge(session.Partial{Name: sess.Identity.Name, Email: sess.Identity.Email})
	return msg
}

// nextCreateField picks this turn's booking question. Identity comes first;
// after that, a known schedule steers the conversation: with date and time on
// the table the service is the natural follow-up, with only a date the time
// is, and with neither the date is asked before the service.
func nextCreateField(state *session.State) slotfill.Field {
	switch {
	case state.Name == "":
		return slotfill.FieldName
	case state.Email == "":
		return slotfill.FieldEmail
	case state.Service == "" && state.Date != "" && state.Time != "":
		return slotfill.FieldService
	case state.Date == "":
		return slotfill.FieldDate
	case state.Time == "":
		return slotfill.FieldTime
	case state.Service == "":
		return slotfill.FieldService
	}
	return slotfill.FieldNotes
}

// createQuestion asks for the next missing field. When only the service is
// missing and the schedule is already known, the question echoes it back the
// way a human scheduler would.
func (m *Manager) createQuestion(state *session.State, next slotfill.Field) string {
	if next == slotfill.FieldService && state.Date != "" && state.Time != "" {
		return fmt.Sprintf("¿Qué tipo de cita o evento necesitas para el %s a las %s?", state.Date, state.Time)
	}
	if next == slotfill.FieldTime && state.Date != "" {
		return fmt.Sprintf("¿A qué hora quieres la cita del %s?", state.Date)
	}
	return slotfill.PromptFor(next)
}

func (m *Manager) fallbackToLLM(ctx context.Context, sess *session.Session, text, lower, dateISO, timeISO string, history []llm.Message, docText string) string {
	m.metrics.ObserveTurn(string(intent.None), "llm")

	if m.client == nil {
		return llmDownReply
	}

	doc := ""
	if docRequested(lower) && docText != "" {
		doc = docText
		if len(doc) > m.docLimit {
			doc = doc[:m.docLimit]
		}
	}

	state := sess.State()
	userTurn := buildUserTurn(text, dateISO, timeISO, sess.Identity, state, doc)
	messages := append(append([]llm.Message{}, history...), llm.Message{Role: llm.RoleUser, Content: userTurn})

	start := m.now()
	resp, err := m.client.Complete(ctx, llm.Request{
		System:      []string{systemPrompt},
		Messages:    messages,
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	})
	if err != nil {
		m.metrics.ObserveLLMLatency("error", time.Since(start).Seconds())
		m.logger.Error("llm completion failed", "error", err, "session_id", sess.ID)
		return llmDownReply
	}
	m.metrics.ObserveLLMLatency("ok", time.Since(start).Seconds())

	p := payload.Extract(resp.Text)
	if p == nil {
		return resp.Text
	}

	switch v := p.(type) {
	case payload.Create:
		// Non-empty payload fields are explicit corrections and overwrite.
		state.MergeCorrections(session.Partial{
			Name:    v.Name,
			Email:   v.Email,
			Service: v.Service,
			Date:    v.Date,
			Time:    v.Time,
			Notes:   v.Notes,
		})
		if state.IsComplete() {
			return m.dispatchCreate(ctx, sess)
		}
		if stripped := payload.StripBlocks(resp.Text); stripped != "" {
			return stripped
		}
		next := nextCreateField(state)
		state.Expected = string(next)
		return m.createQuestion(state, next)
	default:
		if !p.Complete() {
			if stripped := payload.StripBlocks(resp.Text); stripped != "" {
				return stripped
			}
			return resp.Text
		}
		msg, err := m.dispatch.Dispatch(ctx, p)
		if err != nil {
			m.logger.Error("dispatch failed", "error", err, "action", p.Action(), "session_id", sess.ID)
			return dispatchErrorReply
		}
		if _, ok := p.(payload.Cancel); ok {
			sess.ClearDispatchGuard()
		}
		state.Reset()
		state.Merge(session.Partial{Name: sess.Identity.Name, Email: sess.Identity.Email})
		return msg
	}
}

func fingerprint(p payload.Create) string {
	return fmt.Sprintf("create|%s|%s|%s|%s|%s", p.Name, p.Email, p.Service, p.Date, p.Time)
}
