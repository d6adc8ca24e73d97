package cartevents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MarcGrol/shopfrontend/lib/myerrors"
	"github.com/MarcGrol/shopfrontend/lib/myevents"
)

const (
	TopicName        = "cart"
	cartModifiedName = TopicName + ".modified"
)

type CartEventService interface {
	OnCartModified(c context.Context, topic string, event CartModified) error
}

func DispatchEvent(c context.Context, data string, service CartEventService) error {
	envelope, err := myevents.ParseEventEnvelope(data)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case cartModifiedName:
		{
			event := CartModified{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCartModified(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewInvalidInputError(fmt.Errorf("unknown event type %s", envelope.EventTypeName))
	}
}

// CartModified signals that the persisted cart snapshot was rewritten by some
// runtime instance. Receivers re-load the snapshot from storage; the event
// intentionally carries no item deltas.
type CartModified struct {
	SnapshotUID string
	WriterUID   string
}

func (e CartModified) GetEventTypeName() string {
	return cartModifiedName
}

func (e CartModified) GetAggregateName() string {
	return e.SnapshotUID
}
