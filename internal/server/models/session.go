// Package models defines server-side data models persisted in the database.
package models

// Session is the server-side record of a shopping identity: a cart plus a
// single refresh-token slot, optionally bound to a registered user.
type Session struct {
	ID int64

	// UserID is the id of the bound user, or nil while the session is
	// anonymous. The binding is established once at signup and never
	// changes afterwards.
	UserID *string

	// OrdersSavedAt is the client-carried logical clock of the last
	// accepted cart write. Nil means the cart was never saved. It is
	// monotonically non-decreasing.
	OrdersSavedAt *int64

	// RefreshToken is the single active refresh-token value. Issuing a new
	// pair overwrites it; revocation clears it to nil.
	RefreshToken *string

	Lines []CartLine
}

// CartLine is one cart entry: a catalog good reference and a quantity.
// The whole line set is replaced on each accepted cart sync.
type CartLine struct {
	ID        int64
	SessionID int64
	GoodID    int64
	Quantity  int64
}
