package calls

import (
	"errors"
	"strings"

	"outbound-calls/internal/events"
)

var ErrUnknownStatus = errors.New("calls: unknown call status")

// Outcome describes what happened to one inbound signal.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeStale     Outcome = "stale"
	OutcomeTerminal  Outcome = "terminal"
	OutcomeAnomalous Outcome = "anomalous"
	// OutcomeClassified: the call already carries a different AMD verdict.
	OutcomeClassified Outcome = "already_classified"
	OutcomeRejected   Outcome = "rejected"
	OutcomeRecorded   Outcome = "recorded"
)

// Ignored reports whether the signal was dropped without changing state.
func (o Outcome) Ignored() bool {
	switch o {
	case OutcomeDuplicate, OutcomeStale, OutcomeTerminal, OutcomeAnomalous, OutcomeClassified:
		return true
	default:
		return false
	}
}

// ParseStatus maps a provider status spelling onto a Status.
// Matching is case-insensitive and tolerant of surrounding whitespace.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "initiated":
		return StatusInitiated, nil
	case "ringing":
		return StatusRinging, nil
	case "answered", "in-progress", "in_progress":
		return StatusAnswered, nil
	case "completed":
		return StatusCompleted, nil
	case "busy":
		return StatusBusy, nil
	case "failed":
		return StatusFailed, nil
	case "no-answer", "no_answer":
		return StatusNoAnswer, nil
	case "canceled", "cancelled":
		return StatusCanceled, nil
	default:
		return "", &events.DecodeError{Kind: events.KindStatus, Value: raw, Err: ErrUnknownStatus}
	}
}

// stage orders statuses along the lifecycle. Every terminal status shares the
// last stage.
func stage(s Status) int {
	switch s {
	case StatusInitiated:
		return 0
	case StatusRinging:
		return 1
	case StatusAnswered:
		return 2
	default:
		return 3
	}
}

// Transition decides whether moving from current to next is applied.
//
//	initiated -> ringing -> answered -> completed
//	initiated -> ringing -> busy | failed | no_answer | canceled
//	initiated -> failed
//
// Skipping intermediate states is allowed. Anything behind or equal to current
// is ignored, a terminal current ignores everything, and a forward move that
// the lifecycle cannot reach (answered -> busy) is anomalous.
func Transition(current, next Status) Outcome {
	if current == next {
		return OutcomeDuplicate
	}
	if current.Terminal() {
		return OutcomeTerminal
	}
	if stage(next) < stage(current) {
		return OutcomeStale
	}
	if current == StatusAnswered && next != StatusCompleted {
		return OutcomeAnomalous
	}
	return OutcomeApplied
}

// Classify decides whether an AMD verdict replaces the current classification.
// The first decided verdict wins until Rearm.
func Classify(current, next Classification) Outcome {
	if !current.Decided() {
		return OutcomeApplied
	}
	if current == next {
		return OutcomeDuplicate
	}
	return OutcomeClassified
}

// ClassificationFor converts a detection verdict into a Classification.
func ClassificationFor(by events.AnsweredBy) (Classification, error) {
	switch by {
	case events.AnsweredByHuman:
		return ClassificationHuman, nil
	case events.AnsweredByMachine:
		return ClassificationAnsweringMachine, nil
	case events.AnsweredByFax:
		return ClassificationFax, nil
	case events.AnsweredByUnknown:
		return ClassificationUnknown, nil
	default:
		return "", &events.DecodeError{Kind: events.KindClassification, Value: string(by), Err: events.ErrUnknownType}
	}
}
