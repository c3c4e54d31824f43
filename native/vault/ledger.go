package vault

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"xmblvault/core/events"
	"xmblvault/core/types"
)

// Ledger is the issuance and distribution state machine. Every mutating
// operation runs under the internal mutex so the read-modify-write sequence on
// the issuance counter, share table, and owner index is serialised, matching
// the single-writer discipline of the source system. Failed preconditions
// leave the state untouched.
type Ledger struct {
	mu sync.Mutex

	params      CurveParams
	totalUnits  uint64
	nextShareID uint64
	shares      map[uint64]*Share
	owners      map[[20]byte]map[uint64]struct{}
	totalLocked *big.Int

	emitter events.Emitter
	nowFn   func() int64
}

// NewLedger constructs an empty ledger priced by the supplied curve.
func NewLedger(params CurveParams) (*Ledger, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Ledger{
		params:      params.Clone(),
		nextShareID: 1,
		shares:      make(map[uint64]*Share),
		owners:      make(map[[20]byte]map[uint64]struct{}),
		totalLocked: big.NewInt(0),
		emitter:     events.NoopEmitter{},
		nowFn:       func() int64 { return time.Now().Unix() },
	}, nil
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (l *Ledger) SetNowFunc(now func() int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

// CurveParams returns a copy of the configured curve constants.
func (l *Ledger) CurveParams() CurveParams {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params.Clone()
}

// TotalUnitsIssued returns the monotonic count of units issued or reserved.
func (l *Ledger) TotalUnitsIssued() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalUnits
}

// TotalValueLocked returns the aggregate deposit value held by the ledger.
func (l *Ledger) TotalValueLocked() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.totalLocked)
}

// NextUnitPrice returns the curve price of the next issuable unit.
func (l *Ledger) NextUnitPrice() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params.UnitPrice(l.totalUnits)
}

// Share returns a deep copy of the identified share.
func (l *Ledger) Share(id uint64) (*Share, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	share, ok := l.shares[id]
	if !ok {
		return nil, ErrShareNotFound
	}
	return share.Clone(), nil
}

// Shares returns deep copies of every share, ordered by id.
func (l *Ledger) Shares() []*Share {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Share, 0, len(l.shares))
	for _, share := range l.shares {
		out = append(out, share.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HolderSummary aggregates the shares owned by the supplied address.
func (l *Ledger) HolderSummary(owner [20]byte) *HolderSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	summary := &HolderSummary{
		Owner:        owner,
		ShareIDs:     []uint64{},
		TotalDeposit: big.NewInt(0),
		AccruedYield: big.NewInt(0),
	}
	for id := range l.owners[owner] {
		summary.ShareIDs = append(summary.ShareIDs, id)
	}
	sort.Slice(summary.ShareIDs, func(i, j int) bool { return summary.ShareIDs[i] < summary.ShareIDs[j] })
	for _, id := range summary.ShareIDs {
		share := l.shares[id]
		summary.TotalDeposit.Add(summary.TotalDeposit, share.DepositValue)
		summary.AccruedYield.Add(summary.AccruedYield, share.AccruedYield)
	}
	return summary
}

func (l *Ledger) emit(evt *types.Event) {
	if l.emitter == nil || evt == nil {
		return
	}
	l.emitter.Emit(WrapEvent(evt))
}

func (l *Ledger) now() int64 {
	if l.nowFn == nil {
		return time.Now().Unix()
	}
	return l.nowFn()
}

func (l *Ledger) indexAdd(owner [20]byte, id uint64) {
	set, ok := l.owners[owner]
	if !ok {
		set = make(map[uint64]struct{})
		l.owners[owner] = set
	}
	set[id] = struct{}{}
}

func (l *Ledger) indexRemove(owner [20]byte, id uint64) {
	set, ok := l.owners[owner]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(l.owners, owner)
	}
}
