package domain

// SnoozedItem is the local projection of a Pocket item that has been snoozed.
// Pocket itself has no snooze concept: remotely the item is archived and
// tagged "snoozed", and the wake time exists only in this record. URL and
// title are a denormalized cache of the remote metadata at last sync and may
// go stale.
type SnoozedItem struct {
	// ItemID is the Pocket item identifier. Immutable, primary key.
	ItemID string `json:"itemId"`

	// URL is the resolved URL at last sync, kept for local display.
	URL string `json:"url"`

	// Title is the resolved title at last sync, kept for local display.
	Title string `json:"title"`

	// UntilTimestamp is the epoch second at which the item becomes
	// eligible for waking. Known only locally, never sent to Pocket.
	UntilTimestamp int64 `json:"untilTimestamp"`
}

// Due reports whether the item is eligible for waking at now (epoch seconds).
func (i *SnoozedItem) Due(now int64) bool {
	return i.UntilTimestamp <= now
}

// Partition splits items into those that are due at now and those that are
// not yet due. Order within each half follows the input order.
func Partition(items []*SnoozedItem, now int64) (due, notYetDue []*SnoozedItem) {
	for _, item := range items {
		if item.Due(now) {
			due = append(due, item)
		} else {
			notYetDue = append(notYetDue, item)
		}
	}
	return due, notYetDue
}

// NextWake returns the earliest UntilTimestamp among items, floored at now so
// a wake is never scheduled in the past. The second return value is false
// when items is empty.
func NextWake(items []*SnoozedItem, now int64) (int64, bool) {
	if len(items) == 0 {
		return 0, false
	}
	next := items[0].UntilTimestamp
	for _, item := range items[1:] {
		if item.UntilTimestamp < next {
			next = item.UntilTimestamp
		}
	}
	if next < now {
		next = now
	}
	return next, true
}

// ItemIDs returns the identifiers of items, preserving order.
func ItemIDs(items []*SnoozedItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemID)
	}
	return ids
}
