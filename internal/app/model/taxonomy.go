package model

import "time"

// TaxonomyKind identifies one of the four taxonomy collections a game references
type TaxonomyKind string

const (
	KindDeveloper TaxonomyKind = "developer"
	KindPublisher TaxonomyKind = "publisher"
	KindCategory  TaxonomyKind = "category"
	KindPlatform  TaxonomyKind = "platform"
)

// TaxonomyKinds lists every kind in reconciliation order
var TaxonomyKinds = []TaxonomyKind{KindDeveloper, KindPublisher, KindCategory, KindPlatform}

// Valid reports whether k is a known kind
func (k TaxonomyKind) Valid() bool {
	switch k {
	case KindDeveloper, KindPublisher, KindCategory, KindPlatform:
		return true
	}
	return false
}

// TableName returns the collection backing the kind
func (k TaxonomyKind) TableName() string {
	switch k {
	case KindDeveloper:
		return "developers"
	case KindPublisher:
		return "publishers"
	case KindCategory:
		return "categories"
	case KindPlatform:
		return "platforms"
	}
	return ""
}

// Taxonomy is the shape shared by developers, publishers, categories and
// platforms. Name is the natural key within each collection.
type Taxonomy struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"type:varchar(255);index" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Developer struct {
	Taxonomy
}

func (Developer) TableName() string {
	return "developers"
}

type Publisher struct {
	Taxonomy
}

func (Publisher) TableName() string {
	return "publishers"
}

type Category struct {
	Taxonomy
}

func (Category) TableName() string {
	return "categories"
}

type Platform struct {
	Taxonomy
}

func (Platform) TableName() string {
	return "platforms"
}
