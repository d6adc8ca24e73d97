package myevents

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventEnvelope struct {
	CreatedAt     time.Time
	Topic         string
	AggregateUID  string
	EventTypeName string
	EventPayload  string
}

func (e EventEnvelope) String() string {
	return e.Topic + "." + e.EventTypeName + "." + e.AggregateUID
}

type Event interface {
	GetEventTypeName() string
	GetAggregateName() string
}

func WrapEvent(topic string, createdAt time.Time, event Event) (EventEnvelope, error) {
	jsonPayload, err := json.Marshal(event)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("error marshalling event-payload: %s", err)
	}

	return EventEnvelope{
		CreatedAt:     createdAt,
		Topic:         topic,
		AggregateUID:  event.GetAggregateName(),
		EventTypeName: event.GetEventTypeName(),
		EventPayload:  string(jsonPayload),
	}, nil
}

func ParseEventEnvelope(data string) (EventEnvelope, error) {
	envelope := EventEnvelope{}
	err := json.Unmarshal([]byte(data), &envelope)
	if err != nil {
		return envelope, fmt.Errorf("error parsing event envelope: %s", err)
	}

	return envelope, nil
}
