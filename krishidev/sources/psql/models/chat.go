package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RecordKindText  = "text"
	RecordKindImage = "image"
)

// ChatRecord is the append-only chat log row. Kind discriminates text
// exchanges (Question/Answer) from image ones (Filename/ImageKey/Result).
// The in-process session state is never rebuilt from these rows.
type ChatRecord struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserKey   string    `json:"user_id" gorm:"type:varchar(255);not null;index"`
	Kind      string    `json:"type" gorm:"type:varchar(20);not null"`
	Question  string    `json:"question,omitempty" gorm:"type:text"`
	Answer    string    `json:"response,omitempty" gorm:"type:text"`
	Filename  string    `json:"filename,omitempty" gorm:"type:varchar(512)"`
	ImageKey  string    `json:"image_key,omitempty" gorm:"type:varchar(512)"`
	Result    string    `json:"result,omitempty" gorm:"type:text"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
}

func (r *ChatRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return nil
}
