package vault

import (
	"errors"
	"math/big"
	"time"

	"xmblvault/core/events"
)

// LedgerSnapshot is the serialisable view of the full ledger state. It carries
// everything needed to rebuild the in-memory ledger, including the owner index
// which is rederived from the share table on restore.
type LedgerSnapshot struct {
	Params      CurveParams
	TotalUnits  uint64
	NextShareID uint64
	TotalLocked *big.Int
	Shares      []*Share
}

// Snapshot returns a deep copy of the ledger state.
func (l *Ledger) Snapshot() *LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := &LedgerSnapshot{
		Params:      l.params.Clone(),
		TotalUnits:  l.totalUnits,
		NextShareID: l.nextShareID,
		TotalLocked: new(big.Int).Set(l.totalLocked),
		Shares:      make([]*Share, 0, len(l.shares)),
	}
	for _, share := range l.shares {
		snap.Shares = append(snap.Shares, share.Clone())
	}
	return snap
}

// NewLedgerFromSnapshot rebuilds a ledger from a previously taken snapshot.
func NewLedgerFromSnapshot(snap *LedgerSnapshot) (*Ledger, error) {
	if snap == nil {
		return nil, errors.New("vault: nil snapshot")
	}
	if err := snap.Params.Validate(); err != nil {
		return nil, err
	}
	ledger := &Ledger{
		params:      snap.Params.Clone(),
		totalUnits:  snap.TotalUnits,
		nextShareID: snap.NextShareID,
		shares:      make(map[uint64]*Share, len(snap.Shares)),
		owners:      make(map[[20]byte]map[uint64]struct{}),
		totalLocked: big.NewInt(0),
		emitter:     events.NoopEmitter{},
		nowFn:       func() int64 { return time.Now().Unix() },
	}
	if snap.TotalLocked != nil {
		if snap.TotalLocked.Sign() < 0 {
			return nil, errors.New("vault: negative locked value in snapshot")
		}
		ledger.totalLocked.Set(snap.TotalLocked)
	}
	if ledger.nextShareID == 0 {
		ledger.nextShareID = 1
	}
	for _, share := range snap.Shares {
		if share == nil {
			return nil, errors.New("vault: nil share in snapshot")
		}
		if !share.Kind.Valid() {
			return nil, errors.New("vault: invalid share kind in snapshot")
		}
		if _, exists := ledger.shares[share.ID]; exists {
			return nil, errors.New("vault: duplicate share id in snapshot")
		}
		if share.ID >= ledger.nextShareID {
			ledger.nextShareID = share.ID + 1
		}
		clone := share.Clone()
		ledger.shares[clone.ID] = clone
		ledger.indexAdd(clone.Owner, clone.ID)
	}
	return ledger, nil
}
