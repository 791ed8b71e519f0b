package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&Export{})
}

// Export is one finished conversion job in the history ledger.
type Export struct {
	gorm.Model
	UUID       string
	Source     string
	OutputPath string
	Format     string
	Palette    string
	Dither     string
	Frames     int
	Duration   float64
}

func (e *Export) BeforeCreate(tx *gorm.DB) error {
	if len(e.UUID) == 0 {
		e.UUID = uuid.NewString()
	}
	return nil
}
