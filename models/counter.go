package models

// Counter is one named sequence, e.g. "books".
type Counter struct {
	ID  string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Seq int64  `gorm:"not null;default:0" json:"seq"`
}
