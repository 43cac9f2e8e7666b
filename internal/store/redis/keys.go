package redis

// Key layout. Snoozed items and scalar settings live in two explicit
// partitions so application code never has to guess a value's type from the
// shape of its key.
const (
	// KeyPrefixItem is the prefix for snoozed item records.
	KeyPrefixItem = "snooze:item:"
	// KeyAllItems is the set of all snoozed item IDs.
	KeyAllItems = "snooze:items:all"

	// KeyAccessToken holds the Pocket access token.
	KeyAccessToken = "snooze:auth:token"
	// KeyUsername holds the Pocket account username.
	KeyUsername = "snooze:auth:username"
	// KeyLastSynced holds the epoch second of the last metadata sync.
	KeyLastSynced = "snooze:sync:last"
	// KeySettings holds the JSON-encoded wake-time preferences.
	KeySettings = "snooze:settings"

	// ChannelChanges is the pub/sub channel carrying changed item IDs.
	ChannelChanges = "snooze:changes"
)

// ItemKey returns the key for a snoozed item record by ID.
func ItemKey(id string) string {
	return KeyPrefixItem + id
}
