package model

import "time"

// Game is a published catalog entry. Name is globally unique and the
// ingestion pipeline never updates a game once it exists.
type Game struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	Name             string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Slug             string     `gorm:"type:varchar(255);index" json:"slug"`
	Price            float64    `gorm:"not null;default:0" json:"price"`
	ReleaseDate      *time.Time `json:"release_date"`
	Description      string     `gorm:"type:text" json:"description"`
	ShortDescription string     `gorm:"type:varchar(160)" json:"short_description"`
	Rating           string     `gorm:"type:varchar(10);not null;default:'BR0'" json:"rating"`
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Relationships
	Developers []Developer `gorm:"many2many:game_developers" json:"developers,omitempty"`
	Publishers []Publisher `gorm:"many2many:game_publishers" json:"publishers,omitempty"`
	Categories []Category  `gorm:"many2many:game_categories" json:"categories,omitempty"`
	Platforms  []Platform  `gorm:"many2many:game_platforms" json:"platforms,omitempty"`
	Assets     []Asset     `gorm:"polymorphic:Ref;polymorphicValue:game" json:"assets,omitempty"`
}

func (Game) TableName() string {
	return "games"
}

// Cover returns the most recent cover asset, if any was loaded
func (g *Game) Cover() *Asset {
	var cover *Asset
	for i := range g.Assets {
		if g.Assets[i].Field == AssetFieldCover {
			cover = &g.Assets[i]
		}
	}
	return cover
}

// Gallery returns the gallery assets in upload order
func (g *Game) Gallery() []Asset {
	var gallery []Asset
	for _, a := range g.Assets {
		if a.Field == AssetFieldGallery {
			gallery = append(gallery, a)
		}
	}
	return gallery
}
