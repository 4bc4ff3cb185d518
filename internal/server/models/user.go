package models

import "time"

// User is a registered shopper. Exactly one session belongs to a user; the
// session side owns the relationship, SessionID is a lookup back-reference.
type User struct {
	ID        string
	Email     string
	Name      string
	Surname   string
	SessionID int64
	CreatedAt time.Time
}
