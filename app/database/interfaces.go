package database

// HashStore is the durable set of fingerprints kept for every feed.
type HashStore interface {
	Exists(feedName string) (bool, error)
	Create(feedName string) error
	Drop(feedName string) error
	Count(feedName string) (int, error)
	InsertIfAbsent(feedName, hash string) (bool, error)
	ReadAll(feedName string) ([]string, error)
	EvictOldest(feedName string, keep int) (int64, error)
	Tables() ([]HashTable, error)
}
