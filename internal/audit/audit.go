// Package audit records every gate decision for compliance review. The
// structured log is the system of record and is always written with the
// full rejection detail, including the matched phrase and field, even when
// the caller-facing response is collapsed to the generic refusal message.
// An optional redis stream fans the same events out to downstream
// compliance tooling; publishing there is best-effort and never blocks or
// fails a gate decision.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/scribe-safety-gate/internal/domain"
)

// EventType distinguishes the audited actions.
type EventType string

const (
	EventRejection    EventType = "rejection"
	EventAccepted     EventType = "accepted"
	EventAcknowledged EventType = "acknowledged"
	EventSigned       EventType = "signed"
	EventAddendum     EventType = "addendum"
)

// Event is one audited gate decision.
type Event struct {
	Type          EventType           `json:"type"`
	Timestamp     time.Time           `json:"timestamp"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	DocumentID    string              `json:"document_id,omitempty"`
	Kind          domain.DocumentKind `json:"kind,omitempty"`
	Language      domain.Language     `json:"language,omitempty"`
	Actor         string              `json:"actor,omitempty"`
	PolicyVersion string              `json:"policy_version,omitempty"`

	// Rejection detail, present only for EventRejection.
	Code   domain.ValidationCode `json:"code,omitempty"`
	Field  string                `json:"field,omitempty"`
	Reason string                `json:"reason,omitempty"`
	Phrase string                `json:"phrase,omitempty"`
}

// Sink publishes audit events to an external system.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Recorder writes audit events to the structured log and, when a sink is
// configured, publishes them through a circuit breaker so a struggling
// sink cannot slow down validation.
type Recorder struct {
	logger  *logrus.Logger
	sink    Sink
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewRecorder creates an audit recorder. sink may be nil.
func NewRecorder(logger *logrus.Logger, sink Sink, publishTimeout time.Duration) *Recorder {
	r := &Recorder{
		logger:  logger,
		sink:    sink,
		timeout: publishTimeout,
	}
	if r.timeout <= 0 {
		r.timeout = 2 * time.Second
	}
	if sink != nil {
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "audit-sink",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Audit sink circuit breaker state changed")
			},
		})
	}
	return r
}

// Record writes the event to the log and forwards it to the sink.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	entry := r.logger.WithFields(logrus.Fields{
		"audit":          true,
		"event":          string(event.Type),
		"correlation_id": event.CorrelationID,
		"document_id":    event.DocumentID,
		"kind":           string(event.Kind),
		"language":       string(event.Language),
		"policy_version": event.PolicyVersion,
	})
	if event.Actor != "" {
		entry = entry.WithField("actor", event.Actor)
	}

	switch event.Type {
	case EventRejection:
		entry.WithFields(logrus.Fields{
			"code":   string(event.Code),
			"field":  event.Field,
			"reason": event.Reason,
			"phrase": event.Phrase,
		}).Warn("Document rejected")
	default:
		entry.Info("Gate decision recorded")
	}

	r.publish(ctx, event)
}

// publish forwards the event to the sink, swallowing failures after
// logging them. The breaker keeps a down sink from adding latency to
// every decision.
func (r *Recorder) publish(ctx context.Context, event Event) {
	if r.sink == nil {
		return
	}

	_, err := r.breaker.Execute(func() (interface{}, error) {
		publishCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return nil, r.sink.Publish(publishCtx, event)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			r.logger.WithField("event", string(event.Type)).
				Debug("Audit sink unavailable, event logged only")
			return
		}
		r.logger.WithError(err).Warn("Failed to publish audit event")
	}
}

// Close releases the sink, if any.
func (r *Recorder) Close() error {
	if r.sink == nil {
		return nil
	}
	return r.sink.Close()
}

// marshal produces the JSON payload written to stream sinks.
func (e Event) marshal() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal audit event: %w", err)
	}
	return string(data), nil
}
