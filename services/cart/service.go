package cart

import (
	"context"
	"sync"

	"github.com/MarcGrol/shopfrontend/lib/mylog"
	"github.com/MarcGrol/shopfrontend/lib/mypublisher"
	"github.com/MarcGrol/shopfrontend/lib/mypubsub"
	"github.com/MarcGrol/shopfrontend/lib/mystore"
	"github.com/MarcGrol/shopfrontend/lib/myuuid"
	"github.com/MarcGrol/shopfrontend/services/cartevents"
)

// Service keeps a consistent, persisted view of the shopper's intended
// purchases. Every mutation rewrites the persisted snapshot and announces the
// write on the cart topic; other runtime instances react by re-loading the
// snapshot from storage, so concurrent edits converge last-writer-wins.
type Service struct {
	mutex       sync.Mutex
	snapshot    Snapshot
	instanceUID string

	snapshotStore mystore.Store[Snapshot]
	publisher     mypublisher.Publisher
	subscriber    mypubsub.Subscriber
	uuider        myuuid.UUIDer
	logger        mylog.Logger

	cancelSubscription func()
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(c context.Context, snapshotStore mystore.Store[Snapshot], publisher mypublisher.Publisher, subscriber mypubsub.Subscriber, uuider myuuid.UUIDer) (*Service, error) {
	s := &Service{
		instanceUID:   uuider.Create(),
		snapshotStore: snapshotStore,
		publisher:     publisher,
		subscriber:    subscriber,
		uuider:        uuider,
		logger:        mylog.New("cart"),
	}

	snapshot, found, err := snapshotStore.Get(c, SnapshotUID)
	if err != nil {
		return nil, err
	}
	if !found {
		snapshot = Snapshot{Mode: ModeGuest}
	}
	s.snapshot = snapshot

	cancel, err := subscriber.Subscribe(c, cartevents.TopicName, func(data string) {
		err := cartevents.DispatchEvent(c, data, s)
		if err != nil {
			s.logger.Log(c, "", mylog.SeverityWarn, "Error handling cart event: %s", err)
		}
	})
	if err != nil {
		return nil, err
	}
	s.cancelSubscription = cancel

	return s, nil
}

func (s *Service) Close() {
	if s.cancelSubscription != nil {
		s.cancelSubscription()
	}
}

// OnCartModified re-loads the snapshot written by another instance. Writes
// announced by this instance are skipped: local state is already current.
func (s *Service) OnCartModified(c context.Context, topic string, event cartevents.CartModified) error {
	if event.WriterUID == s.instanceUID {
		return nil
	}

	snapshot, found, err := s.snapshotStore.Get(c, SnapshotUID)
	if err != nil {
		return err
	}
	if !found {
		snapshot = Snapshot{Mode: ModeGuest}
	}

	s.mutex.Lock()
	s.snapshot = snapshot
	s.mutex.Unlock()

	s.logger.Log(c, SnapshotUID, mylog.SeverityDebug, "Re-hydrated cart from storage after remote write")

	return nil
}
