package vault

import (
	"encoding/hex"
	"strconv"
	"strings"

	"xmblvault/core/events"
	"xmblvault/core/types"
)

const (
	// EventTypeShareIssued is emitted when a deposit creates a share.
	EventTypeShareIssued = "vault.share.issued"
	// EventTypeMetaMinted is emitted when units are carved out of a meta share.
	EventTypeMetaMinted = "vault.meta.minted"
	// EventTypeYieldDistributed is emitted when external yield is credited.
	EventTypeYieldDistributed = "vault.yield.distributed"
	// EventTypeYieldClaimed is emitted when a share's accrued yield is claimed.
	EventTypeYieldClaimed = "vault.yield.claimed"
	// EventTypeShareWithdrawn is emitted when a share is deleted and refunded.
	EventTypeShareWithdrawn = "vault.share.withdrawn"
	// EventTypeShareTransferred is emitted when share ownership moves.
	EventTypeShareTransferred = "vault.share.transferred"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// ShareIssuedEvent returns the canonical payload for a new share.
func ShareIssuedEvent(share *Share, result *IssueResult) *types.Event {
	attrs := map[string]string{
		"shareId":      strconv.FormatUint(share.ID, 10),
		"owner":        hexAddr(share.Owner),
		"depositValue": share.DepositValue.String(),
		"kind":         share.Kind.String(),
		"refund":       result.Remainder.String(),
	}
	if share.Kind == ShareKindMeta {
		attrs["unitsReserved"] = strconv.FormatUint(result.Units, 10)
		attrs["metaStartPos"] = strconv.FormatUint(share.MetaStartPos, 10)
	}
	return &types.Event{Type: EventTypeShareIssued, Attributes: attrs}
}

// MetaMintedEvent returns the canonical payload for a meta carve-out. Each
// minted share's unit price is flattened into a share:<id> attribute so an
// indexer can rebuild deposit weights from the log alone.
func MetaMintedEvent(meta *Share, minted []*Share) *types.Event {
	ids := make([]string, 0, len(minted))
	attrs := map[string]string{
		"metaShareId":      strconv.FormatUint(meta.ID, 10),
		"owner":            hexAddr(meta.Owner),
		"remaining":        strconv.FormatUint(meta.MetaRemaining, 10),
		"metaDepositValue": meta.DepositValue.String(),
	}
	for _, share := range minted {
		ids = append(ids, strconv.FormatUint(share.ID, 10))
		attrs["share:"+strconv.FormatUint(share.ID, 10)] = share.DepositValue.String()
	}
	attrs["newShareIds"] = strings.Join(ids, ",")
	return &types.Event{Type: EventTypeMetaMinted, Attributes: attrs}
}

// YieldDistributedEvent returns the canonical payload for a distribution. The
// per-share credits are flattened into share:<id> attributes so an indexer can
// rebuild accrued balances from the log alone.
func YieldDistributedEvent(outcome *DistributionOutcome) *types.Event {
	attrs := map[string]string{
		"total":    outcome.Total.String(),
		"credited": outcome.Credited.String(),
		"dust":     outcome.Dust.String(),
		"holders":  strconv.Itoa(outcome.Holders),
	}
	for id, amount := range outcome.PerShare {
		attrs["share:"+strconv.FormatUint(id, 10)] = amount.String()
	}
	return &types.Event{Type: EventTypeYieldDistributed, Attributes: attrs}
}

// YieldClaimedEvent returns the canonical payload for a claim.
func YieldClaimedEvent(shareID uint64, owner [20]byte, amount string) *types.Event {
	return &types.Event{
		Type: EventTypeYieldClaimed,
		Attributes: map[string]string{
			"shareId": strconv.FormatUint(shareID, 10),
			"owner":   hexAddr(owner),
			"amount":  amount,
		},
	}
}

// ShareWithdrawnEvent returns the canonical payload for a withdrawal.
func ShareWithdrawnEvent(shareID uint64, owner [20]byte, returned string) *types.Event {
	return &types.Event{
		Type: EventTypeShareWithdrawn,
		Attributes: map[string]string{
			"shareId":              strconv.FormatUint(shareID, 10),
			"owner":                hexAddr(owner),
			"depositValueReturned": returned,
		},
	}
}

// ShareTransferredEvent returns the canonical payload for an ownership move.
func ShareTransferredEvent(shareID uint64, from, to [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeShareTransferred,
		Attributes: map[string]string{
			"shareId": strconv.FormatUint(shareID, 10),
			"from":    hexAddr(from),
			"to":      hexAddr(to),
		},
	}
}
