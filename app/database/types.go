package database

import (
	"time"
)

// HashTable is a catalog row describing the fingerprint table of a feed.
type HashTable struct {
	TableName string
	FeedName  string
	CreatedAt time.Time
}
