package cart

import (
	"context"
	"fmt"

	"github.com/MarcGrol/shopfrontend/lib/myerrors"
	"github.com/MarcGrol/shopfrontend/lib/mylog"
	"github.com/MarcGrol/shopfrontend/services/cartevents"
)

// AddToCart merges by product: an existing entry for the same ProductItemUID
// gets its quantity incremented and total recomputed, keeping its UID. Only an
// unknown product appends a new entry.
func (s *Service) AddToCart(c context.Context, item LineItem) (LineItem, error) {
	if item.ProductItemUID == "" {
		return LineItem{}, myerrors.NewInvalidInputErrorf("missing productItemUID")
	}
	if item.Quantity < 1 {
		return LineItem{}, myerrors.NewInvalidInputErrorf("quantity must be at least 1, got %d", item.Quantity)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var result LineItem
	merged := false
	for idx, existing := range s.snapshot.Items {
		if existing.ProductItemUID == item.ProductItemUID {
			existing.Quantity += item.Quantity
			s.snapshot.Items[idx] = existing.withRecomputedTotal()
			result = s.snapshot.Items[idx]
			merged = true
			break
		}
	}

	if !merged {
		if item.UID == "" {
			item.UID = s.uuider.Create()
		}
		item = item.withRecomputedTotal()
		s.snapshot.Items = append(s.snapshot.Items, item)
		result = item
	}

	err := s.persistLocked(c)
	if err != nil {
		return LineItem{}, err
	}

	s.logger.Log(c, result.UID, mylog.SeverityInfo, "Added %d x %s to cart", item.Quantity, item.ProductItemUID)

	return result, nil
}

// RemoveFromCart removes the entry with the given UID; absent UIDs are a no-op.
func (s *Service) RemoveFromCart(c context.Context, uid string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	kept := make([]LineItem, 0, len(s.snapshot.Items))
	for _, item := range s.snapshot.Items {
		if item.UID != uid {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(s.snapshot.Items) {
		return nil
	}
	s.snapshot.Items = kept

	return s.persistLocked(c)
}

// UpdateItem applies a partial update; the total price is recomputed from the
// possibly updated unit price and quantity.
func (s *Service) UpdateItem(c context.Context, uid string, patch ItemPatch) (LineItem, error) {
	if patch.Quantity != nil && *patch.Quantity < 1 {
		return LineItem{}, myerrors.NewInvalidInputErrorf("quantity must be at least 1, got %d", *patch.Quantity)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for idx, item := range s.snapshot.Items {
		if item.UID != uid {
			continue
		}

		if patch.UnitPrice != nil {
			item.UnitPrice = *patch.UnitPrice
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		s.snapshot.Items[idx] = item.withRecomputedTotal()

		err := s.persistLocked(c)
		if err != nil {
			return LineItem{}, err
		}

		return s.snapshot.Items[idx], nil
	}

	return LineItem{}, myerrors.NewNotFoundError(fmt.Errorf("cart item with uid %s not found", uid))
}

// SetCart replaces the snapshot wholesale. Used only to hydrate the server's
// canonical cart after sign-in, never for incremental edits.
func (s *Service) SetCart(c context.Context, mode Mode, items []LineItem) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	normalized := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.UID == "" {
			item.UID = s.uuider.Create()
		}
		normalized = append(normalized, item.withRecomputedTotal())
	}

	s.snapshot = Snapshot{
		Mode:  mode,
		Items: normalized,
	}

	return s.persistLocked(c)
}

// Clear empties the snapshot: used on logout and after a completed purchase.
func (s *Service) Clear(c context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.snapshot = Snapshot{Mode: s.snapshot.Mode}

	return s.persistLocked(c)
}

// GetItem is a pure lookup without side effects.
func (s *Service) GetItem(uid string) (LineItem, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, item := range s.snapshot.Items {
		if item.UID == uid {
			return item, true
		}
	}

	return LineItem{}, false
}

func (s *Service) Items() []LineItem {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	items := make([]LineItem, len(s.snapshot.Items))
	copy(items, s.snapshot.Items)

	return items
}

func (s *Service) Mode() Mode {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.snapshot.Mode
}

func (s *Service) TotalAmount() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.snapshot.TotalAmount()
}

// persistLocked writes the snapshot to storage and announces the write.
// Callers must hold s.mutex.
func (s *Service) persistLocked(c context.Context) error {
	err := s.snapshotStore.Put(c, SnapshotUID, s.snapshot)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error persisting cart: %s", err))
	}

	err = s.publisher.Publish(c, cartevents.TopicName, cartevents.CartModified{
		SnapshotUID: SnapshotUID,
		WriterUID:   s.instanceUID,
	})
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error publishing cart event: %s", err))
	}

	return nil
}
