package user

import (
	"strconv"
	"time"
)

// User is the record owned by the store. The cache holds a denormalized JSON
// copy with no identity of its own.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CacheKey maps a user id to its cache entry key.
func CacheKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}
