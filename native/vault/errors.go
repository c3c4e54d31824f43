package vault

import "errors"

var (
	// ErrInvalidOwner is returned when an operation names the zero address.
	ErrInvalidOwner = errors.New("vault: owner address must not be zero")
	// ErrInvalidAmount is returned when a deposit amount is nil or not positive.
	ErrInvalidAmount = errors.New("vault: amount must be positive")
	// ErrInsufficientDeposit is returned when a deposit cannot afford even the
	// next unit at the current curve position.
	ErrInsufficientDeposit = errors.New("vault: deposit below next unit price")
	// ErrShareNotFound is returned when the referenced share does not exist.
	ErrShareNotFound = errors.New("vault: share not found")
	// ErrNotMetaOwner is returned when the caller does not own the meta share.
	ErrNotMetaOwner = errors.New("vault: caller does not own meta share")
	// ErrNotAMetaShare is returned when minting from a share without open
	// meta capacity.
	ErrNotAMetaShare = errors.New("vault: share is not an open meta share")
	// ErrInvalidMintCount is returned when the mint count is zero or exceeds
	// the remaining reserved units.
	ErrInvalidMintCount = errors.New("vault: mint count out of range")
	// ErrInvalidYieldAmount is returned when a distribution amount is not positive.
	ErrInvalidYieldAmount = errors.New("vault: yield amount must be positive")
	// ErrNoActiveDeposits is returned when a distribution finds no deposit
	// weight to split across.
	ErrNoActiveDeposits = errors.New("vault: no active deposits")
	// ErrNotShareOwner is returned when the caller does not own the share.
	ErrNotShareOwner = errors.New("vault: caller does not own share")
	// ErrNothingToClaim is returned when a share carries no accrued yield.
	ErrNothingToClaim = errors.New("vault: nothing to claim")
	// ErrNoYieldToClaim is returned when a batch claim credits nothing at all.
	ErrNoYieldToClaim = errors.New("vault: no yield to claim across shares")
	// ErrUnclaimedYield is returned when withdrawing a share that still has
	// accrued yield; the owner must claim first.
	ErrUnclaimedYield = errors.New("vault: share has unclaimed yield")
	// ErrArithmeticOverflow is returned when pricing or accumulation exceeds
	// the 256-bit range instead of silently wrapping.
	ErrArithmeticOverflow = errors.New("vault: arithmetic overflow")
)
