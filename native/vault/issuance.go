package vault

import "math/big"

// Issue converts a deposit, already expressed in the reference unit, into one
// or more shares. The affordability loop walks the curve from the current
// issuance position and stops before the accumulated cost would exceed the
// deposit. A single affordable unit becomes an ordinary share; several become
// one meta share whose positions are reserved immediately. The unspent
// remainder is reported back for refund and never retained.
func (l *Ledger) Issue(owner [20]byte, deposit *big.Int) (*IssueResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if isZeroAddress(owner) {
		return nil, ErrInvalidOwner
	}
	if deposit == nil || deposit.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	totalCost := big.NewInt(0)
	units := uint64(0)
	for {
		price, err := l.params.UnitPrice(l.totalUnits + units)
		if err != nil {
			return nil, err
		}
		candidate := new(big.Int).Add(totalCost, price)
		if candidate.Cmp(deposit) > 0 {
			break
		}
		if err := checkUint256(candidate); err != nil {
			return nil, err
		}
		totalCost = candidate
		units++
	}
	if units == 0 {
		return nil, ErrInsufficientDeposit
	}

	share := &Share{
		ID:            l.nextShareID,
		Owner:         owner,
		Kind:          ShareKindOrdinary,
		DepositValue:  new(big.Int).Set(totalCost),
		OriginalValue: new(big.Int).Set(totalCost),
		AccruedYield:  big.NewInt(0),
		CreatedAt:     l.now(),
	}
	if units > 1 {
		share.Kind = ShareKindMeta
		share.MetaRemaining = units
		share.MetaStartPos = l.totalUnits
	}

	l.nextShareID++
	l.totalUnits += units
	l.shares[share.ID] = share
	l.indexAdd(owner, share.ID)
	l.totalLocked.Add(l.totalLocked, totalCost)

	result := &IssueResult{
		ShareID:   share.ID,
		Kind:      share.Kind,
		Units:     units,
		TotalCost: new(big.Int).Set(totalCost),
		Remainder: new(big.Int).Sub(deposit, totalCost),
	}
	l.emit(ShareIssuedEvent(share, result))
	return result, nil
}

// MintFromMeta carves count ordinary shares out of an open meta share. Each
// minted share is priced at the curve position reserved for it when the meta
// share was issued, and the meta share's remaining deposit weight shrinks by
// the same amount so holder weighting never double counts. The global issuance
// counter does not move; the positions were consumed at issue time. When the
// final unit is carved out the record flips to the closed-meta kind and keeps
// its original value for history.
func (l *Ledger) MintFromMeta(metaID uint64, count uint64, caller [20]byte) ([]uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	meta, ok := l.shares[metaID]
	if !ok {
		return nil, ErrShareNotFound
	}
	if meta.Kind != ShareKindMeta {
		return nil, ErrNotAMetaShare
	}
	if meta.Owner != caller {
		return nil, ErrNotMetaOwner
	}
	if count == 0 || count > meta.MetaRemaining {
		return nil, ErrInvalidMintCount
	}
	mintedCost, err := l.params.CumulativeCost(meta.MetaStartPos, count)
	if err != nil {
		return nil, err
	}

	now := l.now()
	newIDs := make([]uint64, 0, count)
	minted := make([]*Share, 0, count)
	for i := uint64(0); i < count; i++ {
		price, err := l.params.UnitPrice(meta.MetaStartPos + i)
		if err != nil {
			return nil, err
		}
		share := &Share{
			ID:            l.nextShareID,
			Owner:         caller,
			Kind:          ShareKindOrdinary,
			DepositValue:  price,
			OriginalValue: new(big.Int).Set(price),
			AccruedYield:  big.NewInt(0),
			CreatedAt:     now,
		}
		l.nextShareID++
		l.shares[share.ID] = share
		l.indexAdd(caller, share.ID)
		newIDs = append(newIDs, share.ID)
		minted = append(minted, share)
	}

	meta.MetaRemaining -= count
	meta.MetaStartPos += count
	meta.DepositValue = new(big.Int).Sub(meta.DepositValue, mintedCost)
	if meta.DepositValue.Sign() < 0 {
		meta.DepositValue = big.NewInt(0)
	}
	if meta.MetaRemaining == 0 {
		meta.Kind = ShareKindClosedMeta
		meta.MetaStartPos = 0
	}

	l.emit(MetaMintedEvent(meta, minted))
	return newIDs, nil
}
