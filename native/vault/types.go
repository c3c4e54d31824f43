package vault

import "math/big"

// ShareKind distinguishes the three lifecycle states a share can occupy.
type ShareKind uint8

const (
	// ShareKindOrdinary is a single issued unit.
	ShareKindOrdinary ShareKind = iota
	// ShareKindMeta reserves a block of future individually-mintable units.
	ShareKindMeta
	// ShareKindClosedMeta is a fully carved-out meta share kept for history.
	ShareKindClosedMeta
)

// Valid reports whether the kind is one of the defined variants.
func (k ShareKind) Valid() bool {
	switch k {
	case ShareKindOrdinary, ShareKindMeta, ShareKindClosedMeta:
		return true
	default:
		return false
	}
}

func (k ShareKind) String() string {
	switch k {
	case ShareKindOrdinary:
		return "ordinary"
	case ShareKindMeta:
		return "meta"
	case ShareKindClosedMeta:
		return "closed-meta"
	default:
		return "unknown"
	}
}

// Share is an issued unit of the ledger. DepositValue carries the remaining
// curve cost attributed to the record: for ordinary shares it equals the unit
// price paid, for open meta shares the cost of the units not yet carved out.
// OriginalValue keeps the full issuance cost for history and never mutates.
// MetaRemaining and MetaStartPos are meaningful only while Kind is
// ShareKindMeta.
type Share struct {
	ID            uint64    `json:"id"`
	Owner         [20]byte  `json:"owner"`
	Kind          ShareKind `json:"kind"`
	DepositValue  *big.Int  `json:"depositValue"`
	OriginalValue *big.Int  `json:"originalValue"`
	AccruedYield  *big.Int  `json:"accruedYield"`
	MetaRemaining uint64    `json:"metaRemaining,omitempty"`
	MetaStartPos  uint64    `json:"metaStartPos,omitempty"`
	CreatedAt     int64     `json:"createdAt"`
}

// Clone returns a deep copy of the share.
func (s *Share) Clone() *Share {
	if s == nil {
		return nil
	}
	clone := *s
	clone.DepositValue = copyBigInt(s.DepositValue)
	clone.OriginalValue = copyBigInt(s.OriginalValue)
	clone.AccruedYield = copyBigInt(s.AccruedYield)
	return &clone
}

// IssueResult reports the outcome of a deposit.
type IssueResult struct {
	ShareID   uint64
	Kind      ShareKind
	Units     uint64
	TotalCost *big.Int
	Remainder *big.Int
}

// DistributionOutcome summarises a single yield distribution. Dust is the
// truncation residue that was neither credited nor carried forward.
type DistributionOutcome struct {
	Total    *big.Int
	Credited *big.Int
	Dust     *big.Int
	Holders  int
	PerShare map[uint64]*big.Int
}

// HolderSummary aggregates the ledger view of a single owner.
type HolderSummary struct {
	Owner        [20]byte
	ShareIDs     []uint64
	TotalDeposit *big.Int
	AccruedYield *big.Int
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
