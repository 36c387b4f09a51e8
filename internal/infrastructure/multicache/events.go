package multicache

import (
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/cachemeta"
	"github.com/sirupsen/logrus"
)

// EventKind classifies a degradation the orchestrator absorbed instead of failing the caller.
type EventKind string

const (
	// EventTier2Unavailable is emitted once, when the remote tier stops being used.
	EventTier2Unavailable      EventKind = "tier2_unavailable"
	EventTier2ReadFailed       EventKind = "tier2_read_failed"
	EventTier2WriteFailed      EventKind = "tier2_write_failed"
	EventTier2InvalidateFailed EventKind = "tier2_invalidate_failed"
	// EventDecodeFailed means a stored entry could not be decoded and was treated as a miss.
	EventDecodeFailed EventKind = "decode_failed"
)

type Event struct {
	Kind      EventKind
	Namespace string
	Key       string
	Layer     cachemeta.Layer
	Err       error
	At        time.Time
}

// Events exposes degradation events. The channel is buffered; when it is full new events are
// dropped and counted rather than blocking lookups.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

func (o *Orchestrator) emit(ev Event) {
	ev.At = o.now()
	o.metrics.DegradationEvents.WithLabelValues(string(ev.Kind)).Inc()

	if o.logger != nil {
		entry := o.logger.WithFields(logrus.Fields{
			"event":     string(ev.Kind),
			"namespace": ev.Namespace,
			"key":       ev.Key,
			"layer":     string(ev.Layer),
		})
		if ev.Err != nil {
			entry = entry.WithError(ev.Err)
		}
		entry.Warn("cache degraded")
	}

	select {
	case o.events <- ev:
	default:
		o.metrics.EventsDropped.Inc()
	}
}
