package models

import (
	"net/http"
	"time"
)

// CacheEntry is a response snapshot stored by the caching proxy under a
// cache generation. Nothing else references it.
type CacheEntry struct {
	Generation string
	Key        string
	Status     int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
}
