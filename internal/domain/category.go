package domain

// Category is a referenced (never owned) classification entity. Seeded
// categories are created at bootstrap; dynamic ones are promoted by the
// classifier once a detected key accumulates enough articles.
type Category struct {
	ID       string
	Key      string // unique, lowercase
	Label    string
	Icon     string
	Color    string
	ParentID string
	Order    int
	Active   bool
	Language string // empty means language-agnostic
	Dynamic  bool
}
