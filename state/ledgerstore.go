package state

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"xmblvault/native/vault"
	"xmblvault/storage"
)

const (
	ledgerMetaKey       = "vault/ledger/meta"
	shareKeyPrefix      = "vault/ledger/share/"
	shareKeyFormat      = shareKeyPrefix + "%020d"
	snapshotCodecErrFmt = "state: decode share %s: %w"
)

// LedgerStore persists ledger snapshots into a key-value store. Shares are
// written under individual keys so large ledgers do not rewrite one giant
// record on every save, mirroring how the counter metadata stays small.
type LedgerStore struct {
	db storage.Database
	mu sync.Mutex
}

// NewLedgerStore constructs a store backed by the supplied database.
func NewLedgerStore(db storage.Database) *LedgerStore {
	return &LedgerStore{db: db}
}

type storedShare struct {
	ID            uint64
	Owner         []byte
	Kind          uint8
	DepositValue  []byte
	OriginalValue []byte
	AccruedYield  []byte
	MetaRemaining uint64
	MetaStartPos  uint64
	CreatedAt     uint64
}

type storedMeta struct {
	UnitScale   []byte
	FeeBps      uint64
	TotalUnits  uint64
	NextShareID uint64
	TotalLocked []byte
}

// Save writes the snapshot, removing records for shares that no longer exist.
func (s *LedgerStore) Save(snap *vault.LedgerSnapshot) error {
	if s == nil || s.db == nil {
		return errors.New("state: ledger store not initialised")
	}
	if snap == nil {
		return errors.New("state: nil snapshot")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[string]struct{}, len(snap.Shares))
	for _, share := range snap.Shares {
		live[shareKey(share.ID)] = struct{}{}
	}
	var stale [][]byte
	err := s.db.IteratePrefix([]byte(shareKeyPrefix), func(key, _ []byte) error {
		if _, ok := live[string(key)]; !ok {
			stale = append(stale, append([]byte(nil), key...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, key := range stale {
		if err := s.db.Delete(key); err != nil {
			return err
		}
	}

	for _, share := range snap.Shares {
		encoded, err := rlp.EncodeToBytes(storedShare{
			ID:            share.ID,
			Owner:         append([]byte(nil), share.Owner[:]...),
			Kind:          uint8(share.Kind),
			DepositValue:  bigBytes(share.DepositValue),
			OriginalValue: bigBytes(share.OriginalValue),
			AccruedYield:  bigBytes(share.AccruedYield),
			MetaRemaining: share.MetaRemaining,
			MetaStartPos:  share.MetaStartPos,
			CreatedAt:     uint64(share.CreatedAt),
		})
		if err != nil {
			return err
		}
		if err := s.db.Put([]byte(shareKey(share.ID)), encoded); err != nil {
			return err
		}
	}

	meta, err := rlp.EncodeToBytes(storedMeta{
		UnitScale:   bigBytes(snap.Params.UnitScale),
		FeeBps:      snap.Params.FeeBps,
		TotalUnits:  snap.TotalUnits,
		NextShareID: snap.NextShareID,
		TotalLocked: bigBytes(snap.TotalLocked),
	})
	if err != nil {
		return err
	}
	return s.db.Put([]byte(ledgerMetaKey), meta)
}

// Load rebuilds a ledger from storage. The boolean reports whether a persisted
// ledger was found at all.
func (s *LedgerStore) Load() (*vault.Ledger, bool, error) {
	snap, ok, err := s.LoadSnapshot()
	if err != nil || !ok {
		return nil, ok, err
	}
	ledger, err := vault.NewLedgerFromSnapshot(snap)
	if err != nil {
		return nil, false, err
	}
	return ledger, true, nil
}

// LoadSnapshot reads the raw persisted snapshot without building a ledger.
func (s *LedgerStore) LoadSnapshot() (*vault.LedgerSnapshot, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, errors.New("state: ledger store not initialised")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.db.Get([]byte(ledgerMetaKey))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var meta storedMeta
	if err := rlp.DecodeBytes(data, &meta); err != nil {
		return nil, false, fmt.Errorf("state: decode ledger meta: %w", err)
	}
	snap := &vault.LedgerSnapshot{
		Params: vault.CurveParams{
			UnitScale: new(big.Int).SetBytes(meta.UnitScale),
			FeeBps:    meta.FeeBps,
		},
		TotalUnits:  meta.TotalUnits,
		NextShareID: meta.NextShareID,
		TotalLocked: new(big.Int).SetBytes(meta.TotalLocked),
	}

	err = s.db.IteratePrefix([]byte(shareKeyPrefix), func(key, value []byte) error {
		var stored storedShare
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			return fmt.Errorf(snapshotCodecErrFmt, key, err)
		}
		share := &vault.Share{
			ID:            stored.ID,
			Kind:          vault.ShareKind(stored.Kind),
			DepositValue:  new(big.Int).SetBytes(stored.DepositValue),
			OriginalValue: new(big.Int).SetBytes(stored.OriginalValue),
			AccruedYield:  new(big.Int).SetBytes(stored.AccruedYield),
			MetaRemaining: stored.MetaRemaining,
			MetaStartPos:  stored.MetaStartPos,
			CreatedAt:     int64(stored.CreatedAt),
		}
		copy(share.Owner[:], stored.Owner)
		snap.Shares = append(snap.Shares, share)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

func shareKey(id uint64) string {
	return fmt.Sprintf(shareKeyFormat, id)
}

func bigBytes(v *big.Int) []byte {
	if v == nil {
		return []byte{}
	}
	return v.Bytes()
}
