package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgarridoc/citabot/internal/llm"
	"github.com/dgarridoc/citabot/internal/payload"
	"github.com/dgarridoc/citabot/internal/session"
)

// Tuesday, so "mañana" resolves to Wednesday 2025-12-10.
var refNow = time.Date(2025, time.December, 9, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return refNow }

type recordingDispatcher struct {
	payloads []payload.Payload
	reply    string
	err      error
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, p payload.Payload) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.payloads = append(r.payloads, p)
	if r.reply != "" {
		return r.reply, nil
	}
	return "hecho", nil
}

type scriptedLLM struct {
	reply    string
	err      error
	requests []llm.Request
}

func (s *scriptedLLM) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Text: s.reply}, nil
}

func newManager(d *recordingDispatcher, client llm.Client) *Manager {
	return NewManager(d, client, nil, nil, Options{Now: fixedNow})
}

func seededSession() *session.Session {
	reg := session.NewRegistry(func(string) session.Identity {
		return session.Identity{Name: "Ana García", Email: "ana@example.com"}
	})
	return reg.Get("conv-1")
}

func TestGuidedCreateFlow(t *testing.T) {
	d := &recordingDispatcher{reply: "Tu cita ha quedado registrada."}
	m := newManager(d, nil)
	sess := seededSession()
	ctx := context.Background()

	// Turn 1: service given, name and email already seeded, so the date is next.
	reply := m.Process(ctx, sess, "Quiero una cita de dermatólogo", nil, "")
	if !strings.Contains(reply, "día") {
		t.Fatalf("expected a date question, got %q", reply)
	}
	if sess.State().Service != "dermatología" {
		t.Fatalf("service not normalized: %q", sess.State().Service)
	}

	// Turn 2: relative date.
	reply = m.Process(ctx, sess, "mañana", nil, "")
	if !strings.Contains(reply, "hora") {
		t.Fatalf("expected a time question, got %q", reply)
	}
	if sess.State().Date != "2025-12-10" {
		t.Fatalf("relative date not resolved: %q", sess.State().Date)
	}

	// Turn 3: spoken time completes the booking.
	reply = m.Process(ctx, sess, "a las 10", nil, "")
	if len(d.payloads) != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", len(d.payloads))
	}
	got, ok := d.payloads[0].(payload.Create)
	if !ok {
		t.Fatalf("expected a create payload, got %T", d.payloads[0])
	}
	if got.Name != "Ana García" || got.Email != "ana@example.com" ||
		got.Service != "dermatología" || got.Date != "2025-12-10" || got.Time != "10:00" {
		t.Errorf("wrong payload: %+v", got)
	}
	if reply != "Tu cita ha quedado registrada." {
		t.Errorf("unexpected reply: %q", reply)
	}

	// State is reset, identity survives.
	if sess.State().Service != "" || sess.State().Date != "" {
		t.Errorf("state not reset: %+v", sess.State())
	}
	if sess.State().Email != "ana@example.com" {
		t.Errorf("identity lost on reset: %+v", sess.State())
	}
}

func TestCreateWithDateAsksForTimeFirst(t *testing.T) {
	d := &recordingDispatcher{}
	m := newManager(d, nil)
	sess := seededSession()

	reply := m.Process(context.Background(), sess, "agéndame para mañana", nil, "")
	if !strings.Contains(reply, "hora") || !strings.Contains(reply, "2025-12-10") {
		t.Fatalf("expected the time question for the known date, got %q", reply)
	}
	if sess.State().Expected != "time" {
		t.Errorf("expected field not set to time: %q", sess.State().Expected)
	}
}

func TestBareCreateAsksForDateBeforeService(t *testing.T) {
	d := &recordingDispatcher{}
	m := newManager(d, nil)
	sess := seededSession()

	reply := m.Process(context.Background(), sess, "quiero una cita", nil, "")
	if !strings.Contains(reply, "día") {
		t.Fatalf("expected the date question, got %q", reply)
	}
	if sess.State().Expected != "date" {
		t.Errorf("expected field not set to date: %q", sess.State().Expected)
	}
}

func TestRestatedRequestIsNotASlotAnswer(t *testing.T) {
	d := &recordingDispatcher{}
	m := newManager(d, nil)
	sess := session.NewRegistry(nil).Get("anon")
	ctx := context.Background()

	reply := m.Process(ctx, sess, "quiero una cita", nil, "")
	if !strings.Contains(reply, "nombre") {
		t.Fatalf("expected the name question, got %q", reply)
	}

	// A restated request while the name is pending must not become the name.
	reply = m.Process(ctx, sess, "mejor quiero una cita de cardiólogo", nil, "")
	if sess.State().Name != "" {
		t.Fatalf("restated request stored as name: %q", sess.State().Name)
	}
	if sess.State().Service != "cardiología" {
		t.Errorf("service from the restated request lost: %q", sess.State().Service)
	}
	if !strings.Contains(reply, "nombre") {
		t.Errorf("expected the name question again, got %q", reply)
	}
}

func TestDuplicateCompletionDispatchesOnce(t *testing.T) {
	d := &recordingDispatcher{}
	m := newManager(d, nil)
	sess := seededSession()
	ctx := context.Background()

	full := "agenda una cita de médico mañana a las 10:00"
	m.Process(ctx, sess, full, nil, "")
	if len(d.payloads) != 1 {
		t.Fatalf("first completion should dispatch, got %d", len(d.payloads))
	}

	// Same turn replayed must not book a second appointment.
	reply := m.Process(ctx, sess, full, nil, "")
	if len(d.payloads) != 1 {
		t.Fatalf("duplicate completion dispatched again: %d", len(d.payloads))
	}
	if !strings.Contains(reply, "ya está registrada") {
		t.Errorf("unexpected duplicate reply: %q", reply)
	}
}

func TestCancelThenRebookSameSlot(t *testing.T) {
	d := &recordingDispatcher{}
	m := newManager(d, nil)
	sess := seededSession()
	ctx := context.Background()

	full := "agenda una cita de médico mañana a las 10:00"
	m.Process(ctx, sess, full, nil, "")
	m.Process(ctx, sess, "cancela mi cita del 10/12/2025", nil, "")
	m.Process(ctx, sess, full, nil, "")

	var creates int
	for _, p := range d.payloads {
		if p.Action() == payload.ActionCreate {
			creates++
		}
	}
	if creates != 2 {
		t.Fatalf("rebooking after a cancel should dispatch again, got %d creates", creates)
	}
}

func TestConsultUsesLoggedInEmail(t *testing.T) {
	d := &recordingDispatcher{reply: "He encontrado 2 cita(s)."}
	m := newManager(d, nil)
	sess := seededSession()

	reply := m.Process(context.Background(), sess, "ver mis citas", nil, "")
	if len(d.payloads) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(d.payloads))
	}
	got, ok := d.payloads[0].(payload.Consult)
	if !ok || got.Filter != "ana@example.com" {
		t.Fatalf("wrong consult payload: %+v", d.payloads[0])
	}
	if reply != "He encontrado 2 cita(s)." {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestConsultWithoutEmailAsksForIt(t *testing.T) {
	d := &recordingDispatcher{}
	m := newManager(d, nil)
	sess := session.NewRegistry(nil).Get("anon")

	reply := m.Process(context.Background(), sess, "consultar citas", nil, "")
	if len(d.payloads) != 0 {
		t.Fatal("nothing should be dispatched without a filter")
	}
	if reply != askEmailForConsult {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestCancelWithExplicitDate(t *testing.T) {
	d := &recordingDispatcher{}
	m := newManager(d, nil)
	sess := seededSession()

	m.Process(context.Background(), sess, "cancela mi cita del 10/12/2025", nil, "")
	got, ok := d.payloads[0].(payload.Cancel)
	if !ok || got.Filter != "2025-12-10" {
		t.Fatalf("wrong cancel payload: %+v", d.payloads[0])
	}
}

func TestCancelWithoutTargetAsks(t *testing.T) {
	d := &recordingDispatcher{}
	m := newManager(d, nil)
	sess := seededSession()

	reply := m.Process(context.Background(), sess, "cancela mi cita", nil, "")
	if len(d.payloads) != 0 {
		t.Fatal("nothing should be dispatched without a target")
	}
	if reply != askCancelTarget {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestModifySingleUtterance(t *testing.T) {
	d := &recordingDispatcher{}
	m := newManager(d, nil)
	sess := seededSession()

	m.Process(context.Background(), sess, "cambia mi cita del 10/12/2025 a las 11:30", nil, "")
	got, ok := d.payloads[0].(payload.Modify)
	if !ok {
		t.Fatalf("expected modify payload, got %T", d.payloads[0])
	}
	if got.Filter != "2025-12-10" || got.NewDate != "2025-12-10" || got.NewTime != "11:30" {
		t.Errorf("wrong modify payload: %+v", got)
	}
}

func TestModifyWithoutScheduleAsks(t *testing.T) {
	d := &recordingDispatcher{}
	m := newManager(d, nil)
	sess := seededSession()

	reply := m.Process(context.Background(), sess, "quiero cambiar mi cita", nil, "")
	if reply != askModifyTarget {
		t.Errorf("unexpected reply: %q", reply)
	}

	reply = m.Process(context.Background(), sess, "modifica la cita del 10/12/2025", nil, "")
	if reply != askModifySchedule {
		t.Errorf("unexpected reply: %q", reply)
	}
	if len(d.payloads) != 0 {
		t.Fatal("incomplete modify must not dispatch")
	}
}

func TestFallbackReturnsModelText(t *testing.T) {
	d := &recordingDispatcher{}
	client := &scriptedLLM{reply: "¿Para qué día quieres la cita?"}
	m := newManager(d, client)
	sess := session.NewRegistry(nil).Get("anon")

	reply := m.Process(context.Background(), sess, "hola, necesito ayuda", nil, "")
	if reply != "¿Para qué día quieres la cita?" {
		t.Errorf("unexpected reply: %q", reply)
	}
	if len(client.requests) != 1 {
		t.Fatalf("llm not called: %d", len(client.requests))
	}
	req := client.requests[0]
	if len(req.System) == 0 || !strings.Contains(req.System[0], "asistente") {
		t.Error("system prompt missing")
	}
	last := req.Messages[len(req.Messages)-1].Content
	if !strings.Contains(last, "[estado_cita_en_progreso=") {
		t.Errorf("state tag missing from prompt: %q", last)
	}
}

func TestFallbackDispatchesExtractedPayload(t *testing.T) {
	d := &recordingDispatcher{reply: "Cancelada."}
	client := &scriptedLLM{reply: "```json\n{\"action\": \"cancel\", \"filtro\": \"2025-12-10\"}\n```"}
	m := newManager(d, client)
	sess := session.NewRegistry(nil).Get("anon")

	reply := m.Process(context.Background(), sess, "quita mi reserva, por favor", nil, "")
	if len(d.payloads) != 1 {
		t.Fatalf("extracted payload not dispatched: %d", len(d.payloads))
	}
	if got := d.payloads[0].(payload.Cancel); got.Filter != "2025-12-10" {
		t.Errorf("wrong filter: %+v", got)
	}
	if reply != "Cancelada." {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestFallbackCreatePayloadMergesAndDispatches(t *testing.T) {
	d := &recordingDispatcher{reply: "Registrada."}
	client := &scriptedLLM{reply: "```json\n{\"action\": \"create\", \"nombre\": \"Luis\", \"email\": \"luis@example.com\", \"servicio\": \"reunión\", \"fecha_iso\": \"2025-12-10\", \"hora_iso\": \"10:00\", \"confianza\": 0.95}\n```"}
	m := newManager(d, client)
	sess := session.NewRegistry(nil).Get("anon")

	reply := m.Process(context.Background(), sess, "apúntalo todo como te dije", nil, "")
	if len(d.payloads) != 1 {
		t.Fatalf("complete create not dispatched: %d", len(d.payloads))
	}
	got := d.payloads[0].(payload.Create)
	if got.Email != "luis@example.com" || got.Service != "reunión" {
		t.Errorf("wrong payload: %+v", got)
	}
	if reply != "Registrada." {
		t.Errorf("unexpected reply: %q", reply)
	}
	if sess.State().HasBookingData() {
		t.Errorf("state not reset after dispatch: %+v", sess.State())
	}
}

func TestFallbackProviderFailureKeepsState(t *testing.T) {
	d := &recordingDispatcher{}
	client := &scriptedLLM{err: errors.New("provider down")}
	m := newManager(d, client)
	sess := session.NewRegistry(nil).Get("anon")

	reply := m.Process(context.Background(), sess, "hola", nil, "")
	if reply != llmDownReply {
		t.Errorf("unexpected reply: %q", reply)
	}
	if len(d.payloads) != 0 {
		t.Fatal("nothing should be dispatched on provider failure")
	}
}

func TestDocumentContextOnlyOnRequest(t *testing.T) {
	d := &recordingDispatcher{}
	client := &scriptedLLM{reply: "ok"}
	m := newManager(d, client)
	sess := session.NewRegistry(nil).Get("anon")
	doc := "Nombre: Luis\nEmail: luis@example.com"

	m.Process(context.Background(), sess, "hola", nil, doc)
	first := client.requests[0].Messages[0].Content
	if strings.Contains(first, "CONTEXTO DOCUMENTO") {
		t.Error("document included without being requested")
	}

	m.Process(context.Background(), sess, "saca los datos del documento", nil, doc)
	second := client.requests[1].Messages[0].Content
	if !strings.Contains(second, "CONTEXTO DOCUMENTO") || !strings.Contains(second, "luis@example.com") {
		t.Errorf("document context missing: %q", second)
	}
}

func TestDocumentContextIsCapped(t *testing.T) {
	d := &recordingDispatcher{}
	client := &scriptedLLM{reply: "ok"}
	m := NewManager(d, client, nil, nil, Options{Now: fixedNow, DocLimit: 10})
	sess := session.NewRegistry(nil).Get("anon")

	m.Process(context.Background(), sess, "usa el pdf", nil, strings.Repeat("x", 100))
	turn := client.requests[0].Messages[0].Content
	if strings.Contains(turn, strings.Repeat("x", 11)) {
		t.Error("document context not truncated")
	}
}

func TestDispatchFailureSurfacesError(t *testing.T) {
	d := &recordingDispatcher{err: errors.New("db down")}
	m := newManager(d, nil)
	sess := seededSession()

	reply := m.Process(context.Background(), sess, "agenda una cita de médico mañana a las 10:00", nil, "")
	if reply != dispatchErrorReply {
		t.Errorf("unexpected reply: %q", reply)
	}
	// State keeps the collected data so the user can retry.
	if sess.State().Service != "médico" {
		t.Errorf("state lost on dispatch failure: %+v", sess.State())
	}
}
