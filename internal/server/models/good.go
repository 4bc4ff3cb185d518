package models

// Good is a catalog item. PriceCents avoids floating-point money.
// StorageKey, when set, points at the picture object in the S3 bucket.
type Good struct {
	ID          int64
	Name        string
	PriceCents  int64
	Description string
	StorageKey  *string
	Tags        []Tag
}

type Tag struct {
	ID   int64
	Name string
}
