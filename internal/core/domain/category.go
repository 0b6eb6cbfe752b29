package domain

// Category identifies a destination collection of papers. Course codes
// map many-to-one onto categories; a code with no mapped category is
// untracked.
type Category struct {
	// Slug is the destination's identifier for the category.
	Slug string

	// Code is the course code the category was resolved from.
	Code string
}

// DestinationItem is one file already present in a destination category.
// The filename is assigned by the destination and is opaque; only the
// item's content identity matters for reconciliation.
type DestinationItem struct {
	// CategorySlug links the item to its category.
	CategorySlug string

	// Filename is the destination's opaque identifier for the file.
	Filename string

	// DisplayName is the human-readable name shown by the destination.
	DisplayName string
}
