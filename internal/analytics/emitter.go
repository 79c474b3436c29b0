package analytics

import (
	"errors"

	"github.com/localcontactforms/contactform/pkg/types"
)

// Emitter ships analytics events. Emit never blocks the caller and never
// reports failures; implementations log them.
type Emitter interface {
	Emit(event *types.AnalyticsEvent)

	// Close flushes in-flight events and releases resources.
	Close() error
}

// NoopEmitter is used when the beacon is disabled.
type NoopEmitter struct{}

func (NoopEmitter) Emit(*types.AnalyticsEvent) {}

func (NoopEmitter) Close() error { return nil }

// MultiEmitter dispatches events to several emitters.
type MultiEmitter struct {
	emitters []Emitter
}

func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

func (m *MultiEmitter) Emit(event *types.AnalyticsEvent) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}

// Close closes every emitter and joins their errors.
func (m *MultiEmitter) Close() error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
