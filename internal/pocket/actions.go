package pocket

// ArchiveAction moves an item to the Pocket archive.
func ArchiveAction(itemID string) Action {
	return Action{Action: "archive", ItemID: itemID}
}

// ReaddAction moves an archived item back to the unread list.
func ReaddAction(itemID string) Action {
	return Action{Action: "readd", ItemID: itemID}
}

// UnsnoozeActions returns the readd + tag-swap trio that ends an item's
// snooze on the Pocket side: back to the unread list, tagged unsnoozed,
// snoozed tag removed.
func UnsnoozeActions(itemID string) []Action {
	return []Action{
		ReaddAction(itemID),
		{Action: "tags_add", ItemID: itemID, Tags: TagUnsnoozed},
		{Action: "tags_remove", ItemID: itemID, Tags: TagSnoozed},
	}
}
