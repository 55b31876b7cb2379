package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outbound-calls/internal/audit"
	"outbound-calls/internal/events"
	"outbound-calls/pkg/logger"
)

const defaultMaxAttempts = 5

// Journal records every signal the tracker sees.
type Journal interface {
	Append(ctx context.Context, e audit.Entry) error
}

// Recorder receives tracker metrics. pkg/metrics.Manager implements it.
type Recorder interface {
	ObserveEvent(eventType, outcome string)
	ObserveDecodeError(kind string)
}

// Result is the outcome of applying one event, with the call as stored after it.
type Result struct {
	Outcome Outcome
	Call    Call
}

// Tracker is the single place where canonical call state changes. It applies
// decoded events against a Store using compare-and-set, so concurrent,
// duplicated and reordered deliveries converge to the same state.
type Tracker struct {
	store       Store
	journal     Journal
	metrics     Recorder
	clock       func() time.Time
	maxAttempts int
}

type Option func(*Tracker)

func WithJournal(j Journal) Option { return func(t *Tracker) { t.journal = j } }

func WithRecorder(r Recorder) Option { return func(t *Tracker) { t.metrics = r } }

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.clock = now
		}
	}
}

// WithMaxAttempts bounds compare-and-set retries per event.
func WithMaxAttempts(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:       store,
		clock:       time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register creates the record for a new call in INITIATED. The AMD
// classification starts at pending when detection is armed.
func (t *Tracker) Register(ctx context.Context, c Call, amdEnabled bool) (Call, error) {
	if c.ConversationID == "" {
		return Call{}, errors.New("calls: conversation_id is required")
	}
	now := t.clock().UTC()
	c.Status = StatusInitiated
	c.AMDClassification = ClassificationNotRequested
	if amdEnabled {
		c.AMDClassification = ClassificationPending
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := t.store.Create(ctx, c); err != nil {
		return Call{}, fmt.Errorf("calls: register %s: %w", c.ConversationID, err)
	}
	return c, nil
}

func (t *Tracker) Get(ctx context.Context, conversationID string) (Call, error) {
	return t.store.Get(ctx, conversationID)
}

// ResolveProviderCallID finds the call a provider callback refers to.
func (t *Tracker) ResolveProviderCallID(ctx context.Context, providerCallID string) (Call, error) {
	if providerCallID == "" {
		return Call{}, ErrNotFound
	}
	return t.store.FindByProviderCallID(ctx, providerCallID)
}

// LinkProviderCallID stores the id the provider assigned at creation.
func (t *Tracker) LinkProviderCallID(ctx context.Context, conversationID, providerCallID string) error {
	return t.store.SetProviderCallID(ctx, conversationID, providerCallID, t.clock().UTC())
}

// Rearm resets the AMD classification to pending so the next detection
// result is applied.
func (t *Tracker) Rearm(ctx context.Context, conversationID string) (Call, error) {
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		cur, err := t.store.Get(ctx, conversationID)
		if err != nil {
			return Call{}, err
		}
		if cur.AMDClassification == ClassificationPending {
			return cur, nil
		}
		now := t.clock().UTC()
		ok, err := t.store.CompareAndSetClassification(ctx, conversationID, cur.AMDClassification, ClassificationPending, now)
		if err != nil {
			return Call{}, err
		}
		if ok {
			logger.From(ctx).Info("amd rearmed", "conversation_id", conversationID, "previous", cur.AMDClassification)
			cur.AMDClassification = ClassificationPending
			cur.UpdatedAt = now
			return cur, nil
		}
	}
	return Call{}, ErrContention
}

// Apply maps one event onto the call it names.
//
// Ignored signals (duplicate, stale, post-terminal, anomalous, already
// classified) return a nil error with the corresponding Outcome. A status
// string that cannot be classified returns a *events.DecodeError and leaves
// the call untouched.
func (t *Tracker) Apply(ctx context.Context, ev events.Event) (Result, error) {
	if ev == nil {
		return Result{}, errors.New("calls: nil event")
	}
	res, detail, err := t.apply(ctx, ev)
	t.observe(ctx, ev, res, detail, err)
	return res, err
}

func (t *Tracker) apply(ctx context.Context, ev events.Event) (Result, string, error) {
	id := ev.ConversationID()
	switch e := ev.(type) {
	case events.CallStatusEvent:
		return t.applyRawStatus(ctx, id, e.Status)
	case events.PhoneCallConnectedEvent:
		return t.applyStatus(ctx, id, StatusAnswered)
	case events.PhoneCallEndedEvent:
		return t.applyStatus(ctx, id, StatusCompleted)
	case events.PhoneCallDidNotConnectEvent:
		return t.applyRawStatus(ctx, id, e.TelephonyStatus)
	case events.DetectionEvent:
		next, err := ClassificationFor(e.AnsweredBy())
		if err != nil {
			return Result{Outcome: OutcomeRejected}, "", err
		}
		return t.applyClassification(ctx, id, next)
	case events.RecordingEvent:
		if err := t.store.SetRecordingURL(ctx, id, e.RecordingURL, t.clock().UTC()); err != nil {
			return Result{}, "", err
		}
		c, err := t.store.Get(ctx, id)
		return Result{Outcome: OutcomeApplied, Call: c}, "recording stored", err
	default:
		// Actions and externally registered variants carry no call state.
		c, err := t.store.Get(ctx, id)
		return Result{Outcome: OutcomeRecorded, Call: c}, "", err
	}
}

func (t *Tracker) applyRawStatus(ctx context.Context, id, raw string) (Result, string, error) {
	next, err := ParseStatus(raw)
	if err != nil {
		return Result{Outcome: OutcomeRejected}, "", err
	}
	return t.applyStatus(ctx, id, next)
}

func (t *Tracker) applyStatus(ctx context.Context, id string, next Status) (Result, string, error) {
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		cur, err := t.store.Get(ctx, id)
		if err != nil {
			return Result{}, "", err
		}
		detail := fmt.Sprintf("%s -> %s", cur.Status, next)
		out := Transition(cur.Status, next)
		if out != OutcomeApplied {
			return Result{Outcome: out, Call: cur}, detail, nil
		}
		now := t.clock().UTC()
		ok, err := t.store.CompareAndSetStatus(ctx, id, cur.Status, next, now)
		if err != nil {
			return Result{}, "", err
		}
		if ok {
			cur.Status = next
			cur.UpdatedAt = now
			return Result{Outcome: OutcomeApplied, Call: cur}, detail, nil
		}
	}
	return Result{}, "", ErrContention
}

func (t *Tracker) applyClassification(ctx context.Context, id string, next Classification) (Result, string, error) {
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		cur, err := t.store.Get(ctx, id)
		if err != nil {
			return Result{}, "", err
		}
		detail := fmt.Sprintf("%s -> %s", cur.AMDClassification, next)
		out := Classify(cur.AMDClassification, next)
		if out != OutcomeApplied {
			return Result{Outcome: out, Call: cur}, detail, nil
		}
		now := t.clock().UTC()
		ok, err := t.store.CompareAndSetClassification(ctx, id, cur.AMDClassification, next, now)
		if err != nil {
			return Result{}, "", err
		}
		if ok {
			cur.AMDClassification = next
			cur.UpdatedAt = now
			return Result{Outcome: OutcomeApplied, Call: cur}, detail, nil
		}
	}
	return Result{}, "", ErrContention
}

func (t *Tracker) observe(ctx context.Context, ev events.Event, res Result, detail string, err error) {
	log := logger.From(ctx).With("conversation_id", ev.ConversationID(), "event_type", ev.Type())

	outcome := res.Outcome
	var de *events.DecodeError
	switch {
	case errors.As(err, &de):
		outcome = OutcomeRejected
		log.Warn("event rejected", "kind", de.Kind, "value", de.Value, "err", err)
		if t.metrics != nil {
			t.metrics.ObserveDecodeError(de.Kind)
		}
	case errors.Is(err, ErrNotFound):
		log.Warn("event for unknown call")
		return
	case err != nil:
		log.Error("event apply failed", "err", err)
		return
	case outcome == OutcomeAnomalous:
		log.Warn("anomalous status ignored", "transition", detail)
	case outcome.Ignored():
		log.Debug("event ignored", "outcome", outcome, "transition", detail)
	case outcome == OutcomeApplied:
		log.Info("event applied", "transition", detail)
	}

	if t.metrics != nil {
		t.metrics.ObserveEvent(string(ev.Type()), string(outcome))
	}
	if t.journal == nil {
		return
	}

	entry := audit.Entry{
		ConversationID: ev.ConversationID(),
		EventType:      string(ev.Type()),
		Outcome:        string(outcome),
		Detail:         detail,
	}
	if err != nil {
		entry.Detail = err.Error()
	}
	if raw, encErr := events.Encode(ev); encErr == nil {
		entry.Payload = string(raw)
		if fp, fpErr := events.Fingerprint(ev); fpErr == nil {
			entry.Fingerprint = fp
		}
	}
	if jErr := t.journal.Append(ctx, entry); jErr != nil {
		log.Warn("journal append failed", "err", jErr)
	}
}
