package challenge

import (
	"context"
	"log/slog"

	"idauth/pkg/platform/audit"
)

// Reducer applies the side effect of a finished challenge.
type Reducer interface {
	Reduce(ctx context.Context, ch *Challenge) error
}

// ReducerFunc adapts a function to Reducer.
type ReducerFunc func(ctx context.Context, ch *Challenge) error

func (f ReducerFunc) Reduce(ctx context.Context, ch *Challenge) error {
	return f(ctx, ch)
}

//go:generate mockgen -source=reducer.go -destination=mocks/mocks.go -package=mocks Compromiser

// Compromiser degrades the device's live session.
type Compromiser interface {
	MarkCompromised(ctx context.Context, mobileUID string) error
}

// OutcomeReducer is the reducer shared by the device integrity checks: a pass
// is reported to analytics, a failure marks the device session compromised.
type OutcomeReducer struct {
	events      audit.Emitter
	compromiser Compromiser
	logger      *slog.Logger
}

func NewOutcomeReducer(events audit.Emitter, compromiser Compromiser, logger *slog.Logger) *OutcomeReducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutcomeReducer{events: events, compromiser: compromiser, logger: logger}
}

func (r *OutcomeReducer) Reduce(ctx context.Context, ch *Challenge) error {
	event := audit.Event{
		Subject:   ch.UserIdentifier,
		MobileUID: ch.MobileUID,
		Platform:  string(ch.Platform),
		Reason:    ch.Error,
	}
	if ch.Succeeded() {
		event.Action = string(audit.EventChallengeSucceeded)
		event.Outcome = string(StatusSucceeded)
		if err := r.events.Emit(ctx, event); err != nil {
			r.logger.WarnContext(ctx, "challenge analytics not recorded", "mobile_uid", ch.MobileUID, "error", err)
		}
		return nil
	}

	event.Action = string(audit.EventChallengeFailed)
	event.Outcome = string(StatusFailed)
	if err := r.events.Emit(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "challenge analytics not recorded", "mobile_uid", ch.MobileUID, "error", err)
	}
	if err := r.compromiser.MarkCompromised(ctx, ch.MobileUID); err != nil {
		r.logger.ErrorContext(ctx, "failed to mark session compromised",
			"mobile_uid", ch.MobileUID,
			"kind", ch.Kind,
			"error", err,
		)
		return err
	}
	r.logger.WarnContext(ctx, "device check failed, session marked compromised",
		"mobile_uid", ch.MobileUID,
		"kind", ch.Kind,
		"reason", ch.Error,
	)
	return nil
}
