package calls

import (
	"errors"
	"testing"

	"outbound-calls/internal/events"
)

func TestParseStatusSpellings(t *testing.T) {
	cases := map[string]Status{
		"queued":      StatusInitiated,
		"initiated":   StatusInitiated,
		"ringing":     StatusRinging,
		"in-progress": StatusAnswered,
		"answered":    StatusAnswered,
		"completed":   StatusCompleted,
		"busy":        StatusBusy,
		"failed":      StatusFailed,
		"no-answer":   StatusNoAnswer,
		"no_answer":   StatusNoAnswer,
		"canceled":    StatusCanceled,
		"cancelled":   StatusCanceled,
		" Ringing ":   StatusRinging,
		"BUSY":        StatusBusy,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %q, got %q", raw, want, got)
		}
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "ringing-ish", "voicemail"} {
		_, err := ParseStatus(raw)
		var de *events.DecodeError
		if !errors.As(err, &de) || de.Kind != events.KindStatus {
			t.Fatalf("expected status DecodeError for %q, got %v", raw, err)
		}
		if !errors.Is(err, ErrUnknownStatus) {
			t.Fatalf("expected ErrUnknownStatus for %q", raw)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		want     Outcome
	}{
		{StatusInitiated, StatusRinging, OutcomeApplied},
		{StatusInitiated, StatusAnswered, OutcomeApplied},
		{StatusInitiated, StatusCompleted, OutcomeApplied},
		{StatusInitiated, StatusFailed, OutcomeApplied},
		{StatusInitiated, StatusNoAnswer, OutcomeApplied},
		{StatusRinging, StatusAnswered, OutcomeApplied},
		{StatusRinging, StatusBusy, OutcomeApplied},
		{StatusRinging, StatusCanceled, OutcomeApplied},
		{StatusAnswered, StatusCompleted, OutcomeApplied},

		{StatusRinging, StatusRinging, OutcomeDuplicate},
		{StatusCompleted, StatusCompleted, OutcomeDuplicate},
		{StatusRinging, StatusInitiated, OutcomeStale},
		{StatusAnswered, StatusRinging, OutcomeStale},

		{StatusCompleted, StatusBusy, OutcomeTerminal},
		{StatusBusy, StatusCompleted, OutcomeTerminal},
		{StatusFailed, StatusRinging, OutcomeTerminal},

		{StatusAnswered, StatusBusy, OutcomeAnomalous},
		{StatusAnswered, StatusNoAnswer, OutcomeAnomalous},
		{StatusAnswered, StatusFailed, OutcomeAnomalous},
	}
	for _, tc := range cases {
		if got := Transition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %s, got %s", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestClassifyFirstWins(t *testing.T) {
	if got := Classify(ClassificationPending, ClassificationHuman); got != OutcomeApplied {
		t.Fatalf("expected applied, got %s", got)
	}
	if got := Classify(ClassificationNotRequested, ClassificationFax); got != OutcomeApplied {
		t.Fatalf("expected applied, got %s", got)
	}
	if got := Classify(ClassificationHuman, ClassificationHuman); got != OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", got)
	}
	if got := Classify(ClassificationHuman, ClassificationAnsweringMachine); got != OutcomeClassified {
		t.Fatalf("expected already_classified, got %s", got)
	}
}

func TestClassificationFor(t *testing.T) {
	want := map[events.AnsweredBy]Classification{
		events.AnsweredByHuman:   ClassificationHuman,
		events.AnsweredByMachine: ClassificationAnsweringMachine,
		events.AnsweredByFax:     ClassificationFax,
		events.AnsweredByUnknown: ClassificationUnknown,
	}
	for by, c := range want {
		got, err := ClassificationFor(by)
		if err != nil || got != c {
			t.Fatalf("%s: expected %s, got %s (%v)", by, c, got, err)
		}
	}
	if _, err := ClassificationFor("robot"); err == nil {
		t.Fatalf("expected error for unknown verdict")
	}
}
