// Package challenge bridges a synchronous client request and a verification
// result that arrives later over the message bus.
//
// A challenge is created with a fresh nonce, launched as a verification request
// carrying a separate transport correlation id, and completed when the result
// for its nonce comes back. Each device holds at most one challenge per kind;
// creating a new one supersedes the old, so late results for the old nonce no
// longer match anything and are discarded.
package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"idauth/internal/challenge/metrics"
	"idauth/internal/platform/kafka"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/sentinel"
	"idauth/pkg/requestcontext"
)

// Capability adapts the correlator to one verification backend whose results
// decode into T.
type Capability[T any] interface {
	Kind() Kind
	// RequestTopic is where verification requests are published.
	RequestTopic() string
	// LaunchPayload validates the client statement and builds the request body.
	LaunchPayload(ch *Challenge, statement string) (any, error)
	// Evaluate checks a delivered result. An error fails the challenge with its message.
	Evaluate(ch *Challenge, result T) error
}

// Correlator runs the challenge lifecycle for one capability.
type Correlator[T any] struct {
	capability Capability[T]
	store      Store
	publisher  kafka.Publisher
	reducer    Reducer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option[T any] func(*Correlator[T])

func WithReducer[T any](r Reducer) Option[T] {
	return func(c *Correlator[T]) {
		c.reducer = r
	}
}

func WithMetrics[T any](m *metrics.Metrics) Option[T] {
	return func(c *Correlator[T]) {
		c.metrics = m
	}
}

func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(c *Correlator[T]) {
		c.logger = logger
	}
}

func New[T any](capability Capability[T], store Store, publisher kafka.Publisher, opts ...Option[T]) *Correlator[T] {
	c := &Correlator[T]{
		capability: capability,
		store:      store,
		publisher:  publisher,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Correlator[T]) Kind() Kind {
	return c.capability.Kind()
}

// Create supersedes any challenge of this kind held by the device and returns
// a new one with a fresh nonce.
func (c *Correlator[T]) Create(ctx context.Context, userIdentifier string, headers domain.Headers) (*Challenge, error) {
	if err := headers.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid device headers")
	}
	now := requestcontext.Now(ctx)
	ch := &Challenge{
		Kind:           c.capability.Kind(),
		MobileUID:      headers.MobileUID,
		UserIdentifier: userIdentifier,
		Nonce:          uuid.NewString(),
		Platform:       headers.PlatformType,
		Status:         StatusCreated,
		Headers:        headers,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.store.Replace(ctx, ch); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.WrapProcess(err, dErrors.CodeForbidden, domain.ProcessCodeChallengeAlreadyRequested,
				"already requested by this device")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save challenge")
	}
	c.metrics.IncCreated(string(ch.Kind))
	c.logger.InfoContext(ctx, "challenge created",
		"kind", ch.Kind,
		"mobile_uid", ch.MobileUID,
		"platform", ch.Platform,
	)
	return ch, nil
}

// Launch publishes the verification request for the device's pending challenge.
// nonce is optional; when given it must match the pending challenge.
func (c *Correlator[T]) Launch(ctx context.Context, userIdentifier, mobileUID, statement, nonce string) (*Challenge, error) {
	ch, err := c.Get(ctx, mobileUID)
	if err != nil {
		return nil, err
	}
	if nonce != "" && ch.Nonce != nonce {
		return nil, dErrors.New(dErrors.CodeForbidden, "challenge does not match the pending one")
	}
	if ch.UserIdentifier != userIdentifier {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeUserIdentifierMismatch, "challenge belongs to another user")
	}
	if ch.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeForbidden, "challenge already completed")
	}
	payload, err := c.capability.LaunchPayload(ch, statement)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid challenge statement")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode challenge payload")
	}

	from := ch.Status
	ch.CorrelationID = uuid.NewString()
	ch.Status = StatusLaunched
	ch.UpdatedAt = requestcontext.Now(ctx)
	if err := c.store.Update(ctx, ch, from); err != nil {
		return nil, c.translateStoreErr(err)
	}

	req, err := json.Marshal(LaunchRequest{
		CorrelationID:  ch.CorrelationID,
		Nonce:          ch.Nonce,
		Kind:           ch.Kind,
		MobileUID:      ch.MobileUID,
		UserIdentifier: ch.UserIdentifier,
		Platform:       string(ch.Platform),
		Payload:        body,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode verification request")
	}
	if err := c.publisher.Publish(ctx, &kafka.Message{
		Topic: c.capability.RequestTopic(),
		Key:   []byte(ch.CorrelationID),
		Value: req,
		Headers: map[string]string{
			"correlation-id": ch.CorrelationID,
			"kind":           string(ch.Kind),
		},
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish verification request")
	}
	c.metrics.IncLaunched(string(ch.Kind))
	c.logger.InfoContext(ctx, "challenge launched",
		"kind", ch.Kind,
		"mobile_uid", ch.MobileUID,
		"correlation_id", ch.CorrelationID,
	)
	return ch, nil
}

// Get returns the device's current challenge of this kind.
func (c *Correlator[T]) Get(ctx context.Context, mobileUID string) (*Challenge, error) {
	ch, err := c.store.FindByDevice(ctx, c.capability.Kind(), mobileUID)
	if err != nil {
		return nil, c.translateStoreErr(err)
	}
	return ch, nil
}

// OnComplete records the result for nonce and applies the reducer. A nonce
// that matches no challenge is stale: it is logged and reported as not found.
func (c *Correlator[T]) OnComplete(ctx context.Context, nonce string, result T, errMsg string) error {
	kind := c.capability.Kind()
	ch, err := c.store.FindByNonce(ctx, kind, nonce)
	if errors.Is(err, sentinel.ErrNotFound) {
		return c.stale(ctx, nonce)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load challenge")
	}
	if ch.Status.IsTerminal() {
		c.logger.WarnContext(ctx, "duplicate challenge result ignored",
			"kind", kind,
			"mobile_uid", ch.MobileUID,
			"status", ch.Status,
		)
		return nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode challenge result")
	}
	from := ch.Status
	ch.ResultData = raw
	switch {
	case errMsg != "":
		ch.Status = StatusFailed
		ch.Error = errMsg
	default:
		if evalErr := c.capability.Evaluate(ch, result); evalErr != nil {
			ch.Status = StatusFailed
			ch.Error = evalErr.Error()
		} else {
			ch.Status = StatusSucceeded
		}
	}
	ch.UpdatedAt = requestcontext.Now(ctx)
	if err := c.store.Update(ctx, ch, from); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return c.stale(ctx, nonce)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save challenge result")
	}
	c.metrics.IncCompleted(string(kind), string(ch.Status))
	c.logger.InfoContext(ctx, "challenge completed",
		"kind", kind,
		"mobile_uid", ch.MobileUID,
		"status", ch.Status,
		"correlation_id", ch.CorrelationID,
	)

	if c.reducer == nil {
		return nil
	}
	if err := c.reducer.Reduce(ctx, ch); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply challenge outcome")
	}
	return nil
}

func (c *Correlator[T]) stale(ctx context.Context, nonce string) error {
	kind := c.capability.Kind()
	c.metrics.IncStale(string(kind))
	c.logger.ErrorContext(ctx, "challenge result for unknown or superseded nonce",
		"kind", kind,
		"nonce", nonce,
	)
	return dErrors.New(dErrors.CodeNotFound, "no challenge for nonce")
}

// Handler consumes ResultMessage records for this capability.
func (c *Correlator[T]) Handler() kafka.Handler {
	return kafka.HandlerFunc(func(ctx context.Context, msg *kafka.Message) error {
		var res ResultMessage
		if err := json.Unmarshal(msg.Value, &res); err != nil {
			c.logger.ErrorContext(ctx, "undecodable challenge result", "topic", msg.Topic, "error", err)
			return dErrors.Wrap(err, dErrors.CodeBadRequest, "undecodable challenge result")
		}
		var result T
		errMsg := res.Error
		if len(res.Result) > 0 {
			if err := json.Unmarshal(res.Result, &result); err != nil && errMsg == "" {
				errMsg = "invalid result payload"
			}
		}
		return c.OnComplete(ctx, res.Nonce, result, errMsg)
	})
}

func (c *Correlator[T]) translateStoreErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "no pending challenge for device")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "challenge store failure")
}
