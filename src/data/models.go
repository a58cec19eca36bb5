package data

import "time"

// Setting is a runtime tunable stored in the database; env variables
// act as fallback when a row is absent.
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:64;uniqueIndex"`
	Value string `gorm:"size:512"`
}

// Guild is per-tenant configuration.
type Guild struct {
	ID             string `gorm:"primaryKey;size:32"` // Discord guild ID
	Enabled        bool   `gorm:"default:true"`
	RequiredRoleID string `gorm:"size:32"` // empty means anyone may use the bot
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FactCheck is the append-only record of one terminal job.
type FactCheck struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	JobID     string `gorm:"size:36;index"`
	UserID    string `gorm:"size:32;index"`
	GuildID   string `gorm:"size:32;index"`
	ChannelID string `gorm:"size:32"`
	MessageID string `gorm:"size:32"`

	InputText string `gorm:"type:text"`
	Statement string `gorm:"type:text"`

	Status     string `gorm:"size:16"`
	FailReason string `gorm:"size:32"`

	Verdict    string  `gorm:"size:16;index"`
	Confidence float64
	Reasoning  string `gorm:"type:text"`
	Sources    string `gorm:"type:text"` // JSON-encoded cited sources
	Model      string `gorm:"size:64"`

	SubmittedAt time.Time
	CreatedAt   time.Time
}
