package mypublisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MarcGrol/shopfrontend/lib/myevents"
	"github.com/MarcGrol/shopfrontend/lib/mypubsub"
	"github.com/MarcGrol/shopfrontend/lib/mytime"
)

type Publisher interface {
	Publish(c context.Context, topic string, event myevents.Event) error
}

type publisher struct {
	pubsub mypubsub.Publisher
	nower  mytime.Nower
}

func New(pubsub mypubsub.Publisher, nower mytime.Nower) Publisher {
	return &publisher{
		pubsub: pubsub,
		nower:  nower,
	}
}

func (p publisher) Publish(c context.Context, topic string, event myevents.Event) error {
	envelope, err := myevents.WrapEvent(topic, p.nower.Now(), event)
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("error marshalling envelope %s: %s", envelope, err)
	}

	err = p.pubsub.Publish(c, topic, string(data))
	if err != nil {
		return fmt.Errorf("error publishing %s: %s", envelope, err)
	}

	return nil
}
