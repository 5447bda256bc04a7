package models

// Label is a candidate or expected label text. Text is globally unique.
type Label struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Text string `gorm:"size:255;not null;uniqueIndex" json:"label"`
}

func (Label) TableName() string {
	return "labels"
}
