package mirror

import (
	"time"

	"github.com/google/uuid"
)

// ShareRecord is the queryable projection of one ledger share.
type ShareRecord struct {
	ShareID       uint64 `gorm:"primaryKey"`
	Owner         string `gorm:"size:42;index"`
	Kind          string `gorm:"size:16;index"`
	DepositValue  string `gorm:"size:80"`
	OriginalValue string `gorm:"size:80"`
	AccruedYield  string `gorm:"size:80"`
	MetaRemaining uint64
	Withdrawn     bool `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// YieldCredit records one share-level credit from a distribution round.
type YieldCredit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShareID   uint64    `gorm:"index"`
	Owner     string    `gorm:"size:42;index"`
	Amount    string    `gorm:"size:80"`
	CreatedAt time.Time
}

// HolderTotal aggregates the mirror view of a single owner.
type HolderTotal struct {
	Owner        string `gorm:"primaryKey;size:42"`
	TotalDeposit string `gorm:"size:80"`
	AccruedYield string `gorm:"size:80"`
	ClaimedYield string `gorm:"size:80"`
	ShareCount   uint64
	UpdatedAt    time.Time
}

// Checkpoint remembers the last journal sequence folded into the mirror.
type Checkpoint struct {
	ID        uint `gorm:"primaryKey"`
	LastSeq   uint64
	UpdatedAt time.Time
}
