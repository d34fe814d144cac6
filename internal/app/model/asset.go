package model

import "time"

// AssetField is the slot an uploaded file fills on its target row
type AssetField string

const (
	AssetFieldCover   AssetField = "cover"
	AssetFieldGallery AssetField = "gallery"
)

// Valid reports whether f is a known slot
func (f AssetField) Valid() bool {
	return f == AssetFieldCover || f == AssetFieldGallery
}

// AssetRefGame is the collection name sent as "ref" when attaching files to games
const AssetRefGame = "game"

// Asset is a binary stored against a row of some collection
type Asset struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	RefID       uint       `gorm:"index:idx_assets_ref;not null" json:"ref_id"`
	RefType     string     `gorm:"type:varchar(50);index:idx_assets_ref;not null" json:"ref"`
	Field       AssetField `gorm:"type:varchar(20);not null" json:"field"`
	Filename    string     `gorm:"type:varchar(255)" json:"filename"`
	Key         string     `gorm:"type:varchar(512)" json:"key"`
	URL         string     `gorm:"type:text" json:"url"`
	ContentType string     `gorm:"type:varchar(100)" json:"content_type"`
	Size        int64      `json:"size"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (Asset) TableName() string {
	return "assets"
}
