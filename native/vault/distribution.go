package vault

import (
	"bytes"
	"math/big"
	"sort"
)

// Distribute splits external yield income across all outstanding shares in
// proportion to each holder's total deposit weight. Both the holder-level and
// the intra-holder division truncate; the residue is reported as dust and is
// deliberately never redistributed, matching the source system's accounting.
func (l *Ledger) Distribute(totalYield *big.Int) (*DistributionOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if totalYield == nil || totalYield.Sign() <= 0 {
		return nil, ErrInvalidYieldAmount
	}
	if err := checkUint256(totalYield); err != nil {
		return nil, err
	}

	type holderGroup struct {
		owner    [20]byte
		shareIDs []uint64
		total    *big.Int
	}
	groups := make(map[[20]byte]*holderGroup)
	totalDeposits := big.NewInt(0)
	for id, share := range l.shares {
		if share.DepositValue == nil || share.DepositValue.Sign() <= 0 {
			continue
		}
		group, ok := groups[share.Owner]
		if !ok {
			group = &holderGroup{owner: share.Owner, total: big.NewInt(0)}
			groups[share.Owner] = group
		}
		group.shareIDs = append(group.shareIDs, id)
		group.total.Add(group.total, share.DepositValue)
		totalDeposits.Add(totalDeposits, share.DepositValue)
	}
	if totalDeposits.Sign() == 0 {
		return nil, ErrNoActiveDeposits
	}

	ordered := make([]*holderGroup, 0, len(groups))
	for _, group := range groups {
		ordered = append(ordered, group)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].owner[:], ordered[j].owner[:]) < 0
	})

	outcome := &DistributionOutcome{
		Total:    new(big.Int).Set(totalYield),
		Credited: big.NewInt(0),
		Dust:     big.NewInt(0),
		Holders:  len(ordered),
		PerShare: make(map[uint64]*big.Int),
	}
	// First pass computes every credit so an overflow fails the distribution
	// before any share balance moves.
	for _, group := range ordered {
		holderShare := new(big.Int).Mul(totalYield, group.total)
		if err := checkUint256(holderShare); err != nil {
			return nil, err
		}
		holderShare.Quo(holderShare, totalDeposits)
		perShare := new(big.Int).Quo(holderShare, big.NewInt(int64(len(group.shareIDs))))
		if perShare.Sign() == 0 {
			continue
		}
		sort.Slice(group.shareIDs, func(i, j int) bool { return group.shareIDs[i] < group.shareIDs[j] })
		for _, id := range group.shareIDs {
			outcome.PerShare[id] = new(big.Int).Set(perShare)
			outcome.Credited.Add(outcome.Credited, perShare)
		}
	}
	for id, credit := range outcome.PerShare {
		share := l.shares[id]
		share.AccruedYield = new(big.Int).Add(share.AccruedYield, credit)
	}
	outcome.Dust.Sub(outcome.Total, outcome.Credited)

	l.emit(YieldDistributedEvent(outcome))
	return outcome, nil
}

// Claim atomically reads and zeroes the accrued yield on a share, returning
// the prior balance. There are no partial claims.
func (l *Ledger) Claim(shareID uint64, caller [20]byte) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	share, ok := l.shares[shareID]
	if !ok {
		return nil, ErrShareNotFound
	}
	if share.Owner != caller {
		return nil, ErrNotShareOwner
	}
	if share.AccruedYield.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	claimed := share.AccruedYield
	share.AccruedYield = big.NewInt(0)

	l.emit(YieldClaimedEvent(shareID, caller, claimed.String()))
	return new(big.Int).Set(claimed), nil
}

// ClaimMultiple applies the claim rule to every listed share. Shares that do
// not exist, belong to someone else, or carry no yield are skipped rather than
// failing the batch; the batch fails only when nothing at all was claimable.
func (l *Ledger) ClaimMultiple(shareIDs []uint64, caller [20]byte) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := big.NewInt(0)
	for _, id := range shareIDs {
		share, ok := l.shares[id]
		if !ok || share.Owner != caller || share.AccruedYield.Sign() == 0 {
			continue
		}
		claimed := share.AccruedYield
		share.AccruedYield = big.NewInt(0)
		total.Add(total, claimed)
		l.emit(YieldClaimedEvent(id, caller, claimed.String()))
	}
	if total.Sign() == 0 {
		return nil, ErrNoYieldToClaim
	}
	return total, nil
}

// Withdraw deletes a share and returns its remaining deposit value. The owner
// must claim accrued yield first; reserved curve positions of an open meta
// share stay consumed because the issuance counter never rewinds.
func (l *Ledger) Withdraw(shareID uint64, caller [20]byte) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	share, ok := l.shares[shareID]
	if !ok {
		return nil, ErrShareNotFound
	}
	if share.Owner != caller {
		return nil, ErrNotShareOwner
	}
	if share.AccruedYield.Sign() > 0 {
		return nil, ErrUnclaimedYield
	}
	returned := new(big.Int).Set(share.DepositValue)
	delete(l.shares, shareID)
	l.indexRemove(caller, shareID)
	l.totalLocked.Sub(l.totalLocked, returned)

	l.emit(ShareWithdrawnEvent(shareID, caller, returned.String()))
	return returned, nil
}

// Transfer moves share ownership and keeps the owner index consistent. Any
// yield accrued so far travels with the share; future meta mints credit the
// new owner because MintFromMeta checks ownership at mint time.
func (l *Ledger) Transfer(shareID uint64, caller, newOwner [20]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if isZeroAddress(newOwner) {
		return ErrInvalidOwner
	}
	share, ok := l.shares[shareID]
	if !ok {
		return ErrShareNotFound
	}
	if share.Owner != caller {
		return ErrNotShareOwner
	}
	if share.Owner == newOwner {
		return nil
	}
	l.indexRemove(caller, shareID)
	share.Owner = newOwner
	l.indexAdd(newOwner, shareID)

	l.emit(ShareTransferredEvent(shareID, caller, newOwner))
	return nil
}
