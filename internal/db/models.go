package db

type ActivityJournalEntry struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	KernelID    string `gorm:"column:kernel_id;not null;index"`
	SpecName    string `gorm:"column:spec_name;not null;default:''"`
	FinalJSON   string `gorm:"column:final_json;not null;default:''"`
	Connections int    `gorm:"column:connections;not null;default:0"`
	StartedAt   int64  `gorm:"column:started_at;not null;default:0"`
	RemovedAt   int64  `gorm:"column:removed_at;not null;default:0"`
}

func (ActivityJournalEntry) TableName() string { return "activity_journal" }
