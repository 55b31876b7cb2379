package dialer

import (
	"context"
	"errors"
	"fmt"

	"outbound-calls/internal/calls"
	"outbound-calls/internal/events"
	"outbound-calls/internal/telephony"
	"outbound-calls/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotPlaced means the call has no provider call id yet.
	ErrNotPlaced = errors.New("call not placed with provider")
)

// Tracker is the part of calls.Tracker the dialer drives.
type Tracker interface {
	Register(ctx context.Context, c calls.Call, amdEnabled bool) (calls.Call, error)
	Get(ctx context.Context, conversationID string) (calls.Call, error)
	LinkProviderCallID(ctx context.Context, conversationID, providerCallID string) error
	Apply(ctx context.Context, ev events.Event) (calls.Result, error)
}

// Recorder receives call start metrics. pkg/metrics.Manager implements it.
type Recorder interface {
	ObserveCallStarted(result string)
}

// Service places and ends outbound calls.
//
// Ordering invariant: the call record exists before the provider is asked to
// dial, so early callbacks always find it.
type Service struct {
	tracker    Tracker
	provider   telephony.Provider
	amdEnabled bool
	metrics    Recorder
	newID      func() string
}

type Option func(*Service)

func WithAMD(enabled bool) Option { return func(s *Service) { s.amdEnabled = enabled } }

func WithRecorder(r Recorder) Option { return func(s *Service) { s.metrics = r } }

// WithIDGenerator replaces uuid.NewString for conversation ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewService(tracker Tracker, provider telephony.Provider, opts ...Option) *Service {
	s := &Service{tracker: tracker, provider: provider, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type StartResult struct {
	ConversationID string     `json:"conversation_id"`
	ProviderCallID string     `json:"provider_call_id"`
	Call           calls.Call `json:"call"`
}

// StartCall registers the call and asks the provider to dial it. When the
// provider answers with an error the call is marked failed. When the request
// never got an answer (TransportError) the provider may still have placed the
// call, so it stays initiated. The provider's typed error is returned either
// way.
func (s *Service) StartCall(ctx context.Context, req telephony.CreateCallRequest) (StartResult, error) {
	if req.To == "" || req.From == "" {
		return StartResult{}, fmt.Errorf("%w: to and from are required", ErrInvalidArgument)
	}
	if req.ConversationID == "" {
		req.ConversationID = s.newID()
	}
	log := logger.From(ctx).With("conversation_id", req.ConversationID, "provider", s.provider.Name())

	call, err := s.tracker.Register(ctx, calls.Call{
		ConversationID:  req.ConversationID,
		ToPhoneNumber:   req.To,
		FromPhoneNumber: req.From,
		RecordRequested: req.Record,
	}, s.amdEnabled)
	if err != nil {
		s.observe("register_failed")
		return StartResult{}, err
	}

	sid, err := s.provider.CreateCall(ctx, req)
	if err != nil {
		var te *telephony.TransportError
		if errors.As(err, &te) {
			log.Warn("create call outcome unknown, leaving call initiated", "result", telephony.ResultLabel(err), "err", err)
		} else {
			log.Warn("create call failed", "result", telephony.ResultLabel(err), "err", err)
			s.markFailed(ctx, req.ConversationID)
		}
		s.observe(telephony.ResultLabel(err))
		return StartResult{ConversationID: req.ConversationID}, err
	}

	if err := s.tracker.LinkProviderCallID(ctx, req.ConversationID, sid); err != nil {
		// The provider is already dialing; callbacks for this sid will 404
		// until an operator reconciles.
		log.Error("link provider call id failed", "provider_call_id", sid, "err", err)
		s.observe("link_failed")
		return StartResult{ConversationID: req.ConversationID, ProviderCallID: sid}, err
	}
	call.ProviderCallID = sid

	log.Info("call started", "provider_call_id", sid, "amd", s.amdEnabled)
	s.observe("ok")
	return StartResult{ConversationID: req.ConversationID, ProviderCallID: sid, Call: call}, nil
}

// EndCall asks the provider to hang up a placed call. A confirmed hangup is
// applied as COMPLETED right away; the provider's own callback then lands as
// a duplicate.
func (s *Service) EndCall(ctx context.Context, conversationID string) (bool, error) {
	call, err := s.tracker.Get(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if call.ProviderCallID == "" {
		return false, ErrNotPlaced
	}

	ended, err := s.provider.EndCall(ctx, call.ProviderCallID)
	if err != nil {
		logger.From(ctx).Warn("end call failed", "conversation_id", conversationID, "provider_call_id", call.ProviderCallID, "err", err)
		return ended, err
	}
	if ended {
		ev := events.CallStatusEvent{
			Base:           events.Base{ID: conversationID},
			Status:         string(calls.StatusCompleted),
			ProviderCallID: call.ProviderCallID,
		}
		if _, err := s.tracker.Apply(ctx, ev); err != nil {
			return true, fmt.Errorf("dialer: record hangup: %w", err)
		}
	}
	return ended, nil
}

func (s *Service) Get(ctx context.Context, conversationID string) (calls.Call, error) {
	return s.tracker.Get(ctx, conversationID)
}

func (s *Service) markFailed(ctx context.Context, conversationID string) {
	ev := events.CallStatusEvent{Base: events.Base{ID: conversationID}, Status: string(calls.StatusFailed)}
	if _, err := s.tracker.Apply(ctx, ev); err != nil {
		logger.From(ctx).Error("mark call failed", "conversation_id", conversationID, "err", err)
	}
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveCallStarted(result)
	}
}
