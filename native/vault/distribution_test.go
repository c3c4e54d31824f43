package vault

import (
	"errors"
	"math/big"
	"testing"
)

// ledgerWithDeposits builds a ledger from a crafted snapshot so distribution
// tests can use small round deposit figures.
func ledgerWithDeposits(t *testing.T, deposits map[byte][]int64) *Ledger {
	t.Helper()
	snap := &LedgerSnapshot{
		Params:      DefaultCurveParams(),
		TotalLocked: big.NewInt(0),
	}
	id := uint64(1)
	for ownerIndex, values := range deposits {
		for _, value := range values {
			snap.Shares = append(snap.Shares, &Share{
				ID:            id,
				Owner:         addr(ownerIndex),
				Kind:          ShareKindOrdinary,
				DepositValue:  big.NewInt(value),
				OriginalValue: big.NewInt(value),
				AccruedYield:  big.NewInt(0),
			})
			snap.TotalLocked.Add(snap.TotalLocked, big.NewInt(value))
			snap.TotalUnits++
			id++
		}
	}
	snap.NextShareID = id
	ledger, err := NewLedgerFromSnapshot(snap)
	if err != nil {
		t.Fatalf("ledger from snapshot: %v", err)
	}
	return ledger
}

func holderShareIDs(t *testing.T, ledger *Ledger, owner [20]byte) []uint64 {
	t.Helper()
	return ledger.HolderSummary(owner).ShareIDs
}

func TestDistributeProportional(t *testing.T) {
	// Holder A has two shares worth 1 each, holder B one share worth 3.
	ledger := ledgerWithDeposits(t, map[byte][]int64{1: {1, 1}, 2: {3}})
	outcome, err := ledger.Distribute(big.NewInt(5))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if outcome.Holders != 2 {
		t.Fatalf("expected 2 holders, got %d", outcome.Holders)
	}
	for _, id := range holderShareIDs(t, ledger, addr(1)) {
		share, err := ledger.Share(id)
		if err != nil {
			t.Fatalf("share lookup: %v", err)
		}
		if share.AccruedYield.Cmp(big.NewInt(1)) != 0 {
			t.Fatalf("holder A share %d: expected 1, got %s", id, share.AccruedYield)
		}
	}
	bShares := holderShareIDs(t, ledger, addr(2))
	share, err := ledger.Share(bShares[0])
	if err != nil {
		t.Fatalf("share lookup: %v", err)
	}
	if share.AccruedYield.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("holder B: expected 3, got %s", share.AccruedYield)
	}
	if outcome.Credited.Cmp(big.NewInt(5)) != 0 || outcome.Dust.Sign() != 0 {
		t.Fatalf("expected full credit without dust, got credited=%s dust=%s", outcome.Credited, outcome.Dust)
	}
}

func TestDistributeBoundedLoss(t *testing.T) {
	ledger := ledgerWithDeposits(t, map[byte][]int64{1: {2, 1}, 2: {4}})
	outcome, err := ledger.Distribute(big.NewInt(10))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	// A: 10*3/7 = 4, split over two shares -> 2 each. B: 10*4/7 = 5.
	if outcome.Credited.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("expected credited 9, got %s", outcome.Credited)
	}
	if outcome.Dust.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected dust 1, got %s", outcome.Dust)
	}
	if outcome.Credited.Cmp(outcome.Total) > 0 {
		t.Fatalf("credited %s exceeds input %s", outcome.Credited, outcome.Total)
	}
	check := new(big.Int).Add(outcome.Credited, outcome.Dust)
	if check.Cmp(outcome.Total) != 0 {
		t.Fatalf("credited+dust %s != total %s", check, outcome.Total)
	}
}

func TestDistributeIntraHolderTruncation(t *testing.T) {
	// A single holder with three equal shares and an indivisible payout.
	ledger := ledgerWithDeposits(t, map[byte][]int64{1: {5, 5, 5}})
	outcome, err := ledger.Distribute(big.NewInt(10))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	// Holder share is the full 10; 10/3 truncates to 3 per share.
	if outcome.Credited.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("expected credited 9, got %s", outcome.Credited)
	}
	if outcome.Dust.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected dust 1, got %s", outcome.Dust)
	}
}

func TestDistributeCountsMetaWeight(t *testing.T) {
	ledger := newTestLedger(t)
	if _, err := ledger.Issue(addr(1), big.NewInt(60_600_000_000)); err != nil {
		t.Fatalf("issue meta: %v", err)
	}
	if _, err := ledger.Issue(addr(2), big.NewInt(40_400_000_000)); err != nil {
		t.Fatalf("issue single: %v", err)
	}
	outcome, err := ledger.Distribute(big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	// Meta weight 60.6e9 of 101e9 total: 1e6*606/1010 = 600000.
	metaIDs := holderShareIDs(t, ledger, addr(1))
	share, err := ledger.Share(metaIDs[0])
	if err != nil {
		t.Fatalf("share lookup: %v", err)
	}
	if share.AccruedYield.Cmp(big.NewInt(600_000)) != 0 {
		t.Fatalf("meta share: expected 600000, got %s", share.AccruedYield)
	}
	if outcome.Credited.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("expected full credit, got %s", outcome.Credited)
	}
}

func TestDistributePreconditions(t *testing.T) {
	ledger := newTestLedger(t)
	if _, err := ledger.Distribute(big.NewInt(0)); !errors.Is(err, ErrInvalidYieldAmount) {
		t.Fatalf("expected invalid yield amount, got %v", err)
	}
	if _, err := ledger.Distribute(nil); !errors.Is(err, ErrInvalidYieldAmount) {
		t.Fatalf("expected invalid yield amount for nil, got %v", err)
	}
	if _, err := ledger.Distribute(big.NewInt(5)); !errors.Is(err, ErrNoActiveDeposits) {
		t.Fatalf("expected no active deposits, got %v", err)
	}
}

func TestClaimIdempotence(t *testing.T) {
	ledger := ledgerWithDeposits(t, map[byte][]int64{1: {10}})
	if _, err := ledger.Distribute(big.NewInt(7)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	id := holderShareIDs(t, ledger, addr(1))[0]
	claimed, err := ledger.Claim(id, addr(1))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("expected claim of 7, got %s", claimed)
	}
	if _, err := ledger.Claim(id, addr(1)); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("expected nothing to claim, got %v", err)
	}
}

func TestClaimRequiresOwnership(t *testing.T) {
	ledger := ledgerWithDeposits(t, map[byte][]int64{1: {10}})
	if _, err := ledger.Distribute(big.NewInt(7)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	id := holderShareIDs(t, ledger, addr(1))[0]
	if _, err := ledger.Claim(id, addr(9)); !errors.Is(err, ErrNotShareOwner) {
		t.Fatalf("expected not share owner, got %v", err)
	}
	if _, err := ledger.Claim(999, addr(1)); !errors.Is(err, ErrShareNotFound) {
		t.Fatalf("expected share not found, got %v", err)
	}
}

func TestClaimMultiple(t *testing.T) {
	ledger := ledgerWithDeposits(t, map[byte][]int64{1: {2, 2}, 2: {4}})
	if _, err := ledger.Distribute(big.NewInt(8)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	aShares := holderShareIDs(t, ledger, addr(1))
	bShares := holderShareIDs(t, ledger, addr(2))
	// The batch includes a foreign share and a bogus id; both are skipped.
	ids := append(append([]uint64{}, aShares...), bShares[0], 999)
	total, err := ledger.ClaimMultiple(ids, addr(1))
	if err != nil {
		t.Fatalf("claim multiple: %v", err)
	}
	// A's holder share is 8*4/8 = 4, split 2+2.
	if total.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("expected batch claim of 4, got %s", total)
	}
	if _, err := ledger.ClaimMultiple(aShares, addr(1)); !errors.Is(err, ErrNoYieldToClaim) {
		t.Fatalf("expected no yield to claim, got %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	ledger := ledgerWithDeposits(t, map[byte][]int64{1: {10}})
	id := holderShareIDs(t, ledger, addr(1))[0]
	if _, err := ledger.Distribute(big.NewInt(5)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if _, err := ledger.Withdraw(id, addr(1)); !errors.Is(err, ErrUnclaimedYield) {
		t.Fatalf("expected unclaimed yield, got %v", err)
	}
	if _, err := ledger.Claim(id, addr(1)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	returned, err := ledger.Withdraw(id, addr(1))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if returned.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected returned 10, got %s", returned)
	}
	if _, err := ledger.Share(id); !errors.Is(err, ErrShareNotFound) {
		t.Fatalf("expected share gone, got %v", err)
	}
	if ledger.TotalValueLocked().Sign() != 0 {
		t.Fatalf("expected zero value locked, got %s", ledger.TotalValueLocked())
	}
}

func TestTransferMovesOwnership(t *testing.T) {
	ledger := ledgerWithDeposits(t, map[byte][]int64{1: {10}})
	id := holderShareIDs(t, ledger, addr(1))[0]
	if err := ledger.Transfer(id, addr(9), addr(2)); !errors.Is(err, ErrNotShareOwner) {
		t.Fatalf("expected not share owner, got %v", err)
	}
	if err := ledger.Transfer(id, addr(1), [20]byte{}); !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("expected invalid owner, got %v", err)
	}
	if err := ledger.Transfer(id, addr(1), addr(2)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(holderShareIDs(t, ledger, addr(1))) != 0 {
		t.Fatalf("old owner still indexed")
	}
	if got := holderShareIDs(t, ledger, addr(2)); len(got) != 1 || got[0] != id {
		t.Fatalf("new owner not indexed: %v", got)
	}
}

func TestTransferMetaThenMint(t *testing.T) {
	ledger := newTestLedger(t)
	result, err := ledger.Issue(addr(1), big.NewInt(60_600_000_000))
	if err != nil {
		t.Fatalf("issue meta: %v", err)
	}
	if err := ledger.Transfer(result.ShareID, addr(1), addr(2)); err != nil {
		t.Fatalf("transfer meta: %v", err)
	}
	if _, err := ledger.MintFromMeta(result.ShareID, 1, addr(1)); !errors.Is(err, ErrNotMetaOwner) {
		t.Fatalf("old owner must not mint, got %v", err)
	}
	newIDs, err := ledger.MintFromMeta(result.ShareID, 1, addr(2))
	if err != nil {
		t.Fatalf("mint as new owner: %v", err)
	}
	share, err := ledger.Share(newIDs[0])
	if err != nil {
		t.Fatalf("minted share lookup: %v", err)
	}
	if share.Owner != addr(2) {
		t.Fatalf("minted share credited to wrong owner")
	}
}
