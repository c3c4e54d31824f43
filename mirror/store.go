package mirror

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"xmblvault/core/types"
	"xmblvault/integrations/journal"
	"xmblvault/native/vault"
)

// Mirror folds the ledger event log into a relational read model.
type Mirror struct {
	db *gorm.DB
}

// Open connects to the SQLite mirror database and migrates the schema.
func Open(dsn string) (*Mirror, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ShareRecord{}, &YieldCredit{}, &HolderTotal{}, &Checkpoint{}); err != nil {
		return nil, err
	}
	return &Mirror{db: db}, nil
}

// DB exposes the underlying handle for the read API.
func (m *Mirror) DB() *gorm.DB { return m.db }

// LastSeq reports the journal cursor the mirror has folded up to.
func (m *Mirror) LastSeq() (uint64, error) {
	var checkpoint Checkpoint
	err := m.db.First(&checkpoint, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return checkpoint.LastSeq, nil
}

// ApplyEntry folds one journaled entry and advances the checkpoint. Entries at
// or below the checkpoint are skipped so replays are idempotent.
func (m *Mirror) ApplyEntry(entry *journal.Entry) error {
	if entry == nil {
		return errors.New("mirror: nil entry")
	}
	last, err := m.LastSeq()
	if err != nil {
		return err
	}
	if entry.Seq <= last {
		return nil
	}
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := applyEvent(tx, entry.Type, entry.Attributes); err != nil {
			return err
		}
		checkpoint := Checkpoint{ID: 1, LastSeq: entry.Seq}
		return tx.Save(&checkpoint).Error
	})
}

// Apply folds a live event without checkpointing. Used when the mirror is
// driven directly off the emitter rather than a journal replay.
func (m *Mirror) Apply(evt *types.Event) error {
	if evt == nil {
		return errors.New("mirror: nil event")
	}
	return m.db.Transaction(func(tx *gorm.DB) error {
		return applyEvent(tx, evt.Type, evt.Attributes)
	})
}

func applyEvent(tx *gorm.DB, eventType string, attrs map[string]string) error {
	switch eventType {
	case vault.EventTypeShareIssued:
		return applyShareIssued(tx, attrs)
	case vault.EventTypeMetaMinted:
		return applyMetaMinted(tx, attrs)
	case vault.EventTypeYieldDistributed:
		return applyYieldDistributed(tx, attrs)
	case vault.EventTypeYieldClaimed:
		return applyYieldClaimed(tx, attrs)
	case vault.EventTypeShareWithdrawn:
		return applyShareWithdrawn(tx, attrs)
	case vault.EventTypeShareTransferred:
		return applyShareTransferred(tx, attrs)
	default:
		// Unknown event types pass through so log evolution stays compatible.
		return nil
	}
}

func applyShareIssued(tx *gorm.DB, attrs map[string]string) error {
	shareID, err := parseShareID(attrs["shareId"])
	if err != nil {
		return err
	}
	owner := attrs["owner"]
	deposit := attrs["depositValue"]
	record := ShareRecord{
		ShareID:       shareID,
		Owner:         owner,
		Kind:          attrs["kind"],
		DepositValue:  deposit,
		OriginalValue: deposit,
		AccruedYield:  "0",
	}
	if raw, ok := attrs["unitsReserved"]; ok {
		units, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("mirror: bad unitsReserved: %w", err)
		}
		record.MetaRemaining = units
	}
	if err := tx.Create(&record).Error; err != nil {
		return err
	}
	return adjustHolder(tx, owner, deposit, "0", "0", 1)
}

func applyMetaMinted(tx *gorm.DB, attrs map[string]string) error {
	metaID, err := parseShareID(attrs["metaShareId"])
	if err != nil {
		return err
	}
	owner := attrs["owner"]
	remaining, err := strconv.ParseUint(attrs["remaining"], 10, 64)
	if err != nil {
		return fmt.Errorf("mirror: bad remaining: %w", err)
	}

	var meta ShareRecord
	if err := tx.First(&meta, "share_id = ?", metaID).Error; err != nil {
		return err
	}
	meta.DepositValue = attrs["metaDepositValue"]
	meta.MetaRemaining = remaining
	if remaining == 0 {
		meta.Kind = vault.ShareKindClosedMeta.String()
	}
	if err := tx.Save(&meta).Error; err != nil {
		return err
	}

	minted := 0
	for key, value := range attrs {
		if !strings.HasPrefix(key, "share:") {
			continue
		}
		shareID, err := parseShareID(strings.TrimPrefix(key, "share:"))
		if err != nil {
			return err
		}
		record := ShareRecord{
			ShareID:       shareID,
			Owner:         owner,
			Kind:          vault.ShareKindOrdinary.String(),
			DepositValue:  value,
			OriginalValue: value,
			AccruedYield:  "0",
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		minted++
	}
	// The carve-out moves deposit weight between records of the same owner,
	// so the holder's total deposit is unchanged.
	return adjustHolder(tx, owner, "0", "0", "0", minted)
}

func applyYieldDistributed(tx *gorm.DB, attrs map[string]string) error {
	for key, value := range attrs {
		if !strings.HasPrefix(key, "share:") {
			continue
		}
		shareID, err := parseShareID(strings.TrimPrefix(key, "share:"))
		if err != nil {
			return err
		}
		var record ShareRecord
		if err := tx.First(&record, "share_id = ?", shareID).Error; err != nil {
			return err
		}
		accrued, err := addAmounts(record.AccruedYield, value)
		if err != nil {
			return err
		}
		record.AccruedYield = accrued
		if err := tx.Save(&record).Error; err != nil {
			return err
		}
		credit := YieldCredit{ID: uuid.New(), ShareID: shareID, Owner: record.Owner, Amount: value}
		if err := tx.Create(&credit).Error; err != nil {
			return err
		}
		if err := adjustHolder(tx, record.Owner, "0", value, "0", 0); err != nil {
			return err
		}
	}
	return nil
}

func applyYieldClaimed(tx *gorm.DB, attrs map[string]string) error {
	shareID, err := parseShareID(attrs["shareId"])
	if err != nil {
		return err
	}
	amount := attrs["amount"]
	var record ShareRecord
	if err := tx.First(&record, "share_id = ?", shareID).Error; err != nil {
		return err
	}
	record.AccruedYield = "0"
	if err := tx.Save(&record).Error; err != nil {
		return err
	}
	negated, err := negate(amount)
	if err != nil {
		return err
	}
	return adjustHolder(tx, record.Owner, "0", negated, amount, 0)
}

func applyShareWithdrawn(tx *gorm.DB, attrs map[string]string) error {
	shareID, err := parseShareID(attrs["shareId"])
	if err != nil {
		return err
	}
	returned := attrs["depositValueReturned"]
	var record ShareRecord
	if err := tx.First(&record, "share_id = ?", shareID).Error; err != nil {
		return err
	}
	record.Withdrawn = true
	record.DepositValue = "0"
	if err := tx.Save(&record).Error; err != nil {
		return err
	}
	negated, err := negate(returned)
	if err != nil {
		return err
	}
	return adjustHolder(tx, record.Owner, negated, "0", "0", -1)
}

func applyShareTransferred(tx *gorm.DB, attrs map[string]string) error {
	shareID, err := parseShareID(attrs["shareId"])
	if err != nil {
		return err
	}
	to := attrs["to"]
	var record ShareRecord
	if err := tx.First(&record, "share_id = ?", shareID).Error; err != nil {
		return err
	}
	from := record.Owner
	record.Owner = to
	if err := tx.Save(&record).Error; err != nil {
		return err
	}
	negDeposit, err := negate(record.DepositValue)
	if err != nil {
		return err
	}
	negYield, err := negate(record.AccruedYield)
	if err != nil {
		return err
	}
	if err := adjustHolder(tx, from, negDeposit, negYield, "0", -1); err != nil {
		return err
	}
	return adjustHolder(tx, to, record.DepositValue, record.AccruedYield, "0", 1)
}

func adjustHolder(tx *gorm.DB, owner, depositDelta, yieldDelta, claimedDelta string, shareDelta int) error {
	var holder HolderTotal
	err := tx.First(&holder, "owner = ?", owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		holder = HolderTotal{Owner: owner, TotalDeposit: "0", AccruedYield: "0", ClaimedYield: "0"}
	} else if err != nil {
		return err
	}
	if holder.TotalDeposit, err = addAmounts(holder.TotalDeposit, depositDelta); err != nil {
		return err
	}
	if holder.AccruedYield, err = addAmounts(holder.AccruedYield, yieldDelta); err != nil {
		return err
	}
	if holder.ClaimedYield, err = addAmounts(holder.ClaimedYield, claimedDelta); err != nil {
		return err
	}
	if shareDelta < 0 && holder.ShareCount < uint64(-shareDelta) {
		holder.ShareCount = 0
	} else {
		holder.ShareCount = uint64(int64(holder.ShareCount) + int64(shareDelta))
	}
	return tx.Save(&holder).Error
}

func parseShareID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("mirror: bad share id %q: %w", raw, err)
	}
	return id, nil
}

func addAmounts(a, b string) (string, error) {
	left, ok := new(big.Int).SetString(a, 10)
	if !ok {
		return "", fmt.Errorf("mirror: bad amount %q", a)
	}
	right, ok := new(big.Int).SetString(b, 10)
	if !ok {
		return "", fmt.Errorf("mirror: bad amount %q", b)
	}
	return left.Add(left, right).String(), nil
}

func negate(a string) (string, error) {
	value, ok := new(big.Int).SetString(a, 10)
	if !ok {
		return "", fmt.Errorf("mirror: bad amount %q", a)
	}
	return value.Neg(value).String(), nil
}
