package cart

type Mode string

const (
	// ModeGuest: the cart lives only in local storage.
	ModeGuest Mode = "guest"
	// ModeMember: the backend holds the canonical cart; the local snapshot is a
	// hydrated copy.
	ModeMember Mode = "member"
)

const (
	// SnapshotUID is the fixed storage key the cart snapshot is persisted under.
	SnapshotUID = "cart"
)

// LineItem is a single cart entry. UID identifies the entry itself and stays
// stable across quantity changes; ProductItemUID identifies the product. At
// rest at most one entry exists per ProductItemUID.
//
// Prices are in minor units (cents).
type LineItem struct {
	UID            string
	ProductItemUID string
	UnitPrice      int64
	Quantity       int
	TotalPrice     int64
}

func (i LineItem) withRecomputedTotal() LineItem {
	i.TotalPrice = i.UnitPrice * int64(i.Quantity)
	return i
}

// Snapshot is the full persisted cart at a point in time.
type Snapshot struct {
	Mode  Mode
	Items []LineItem
}

func (s Snapshot) TotalAmount() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}

	return total
}

// ItemPatch is a partial update of a line item. Nil fields are left untouched.
type ItemPatch struct {
	UnitPrice *int64 `json:"unitPrice"`
	Quantity  *int   `json:"quantity"`
}
