package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SlideDeck struct {
	ID         string         `json:"id" gorm:"type:uuid;primarykey"`
	UserID     string         `json:"user_id" gorm:"type:uuid;not null;index"`
	Title      string         `json:"title" gorm:"size:255;not null"`
	PDFURL     string         `json:"pdf_url" gorm:"column:pdf_url;not null"`
	SlideCount int            `json:"slide_count" gorm:"not null;default:0"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	Summaries  []SlideSummary `json:"-" gorm:"foreignKey:SlideDeckID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (SlideDeck) TableName() string { return "SlideDeck" }

// BeforeCreate assigns the deck id when the caller left it empty.
func (d *SlideDeck) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// SlideSummary is keyed by (SlideDeckID, SlideNumber); there is at most one
// row per slide of a deck.
type SlideSummary struct {
	SlideDeckID string    `json:"slide_deck_id" gorm:"type:uuid;primaryKey;autoIncrement:false"`
	SlideNumber int       `json:"slide_number" gorm:"primaryKey;autoIncrement:false"`
	SummaryText *string   `json:"summary_text"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SlideSummary) TableName() string { return "SlideSummary" }
