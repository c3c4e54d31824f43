package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"xmblvault/crypto"
	"xmblvault/native/vault"
)

type issueParams struct {
	Owner   string `json:"owner"`
	Deposit string `json:"deposit"`
}

type mintFromMetaParams struct {
	MetaID uint64 `json:"metaId"`
	Count  uint64 `json:"count"`
	Caller string `json:"caller"`
}

type distributeParams struct {
	Amount string `json:"amount"`
}

type shareRefParams struct {
	ShareID uint64 `json:"shareId"`
	Caller  string `json:"caller"`
}

type claimMultipleParams struct {
	ShareIDs []uint64 `json:"shareIds"`
	Caller   string   `json:"caller"`
}

type transferParams struct {
	ShareID  uint64 `json:"shareId"`
	Caller   string `json:"caller"`
	NewOwner string `json:"newOwner"`
}

type getShareParams struct {
	ShareID uint64 `json:"shareId"`
}

type getHolderParams struct {
	Owner string `json:"owner"`
}

type IssueResult struct {
	ShareID   uint64 `json:"shareId"`
	Kind      string `json:"kind"`
	Units     uint64 `json:"units"`
	TotalCost string `json:"totalCost"`
	Remainder string `json:"remainder"`
}

type MintFromMetaResult struct {
	MintedShareIDs []uint64 `json:"mintedShareIds"`
}

type DistributeResult struct {
	Total    string            `json:"total"`
	Credited string            `json:"credited"`
	Dust     string            `json:"dust"`
	Holders  int               `json:"holders"`
	PerShare map[string]string `json:"perShare"`
}

type ClaimResult struct {
	Amount string `json:"amount"`
}

type WithdrawResult struct {
	Refund string `json:"refund"`
}

type ShareResult struct {
	ID            uint64 `json:"id"`
	Owner         string `json:"owner"`
	Kind          string `json:"kind"`
	DepositValue  string `json:"depositValue"`
	OriginalValue string `json:"originalValue"`
	AccruedYield  string `json:"accruedYield"`
	MetaRemaining uint64 `json:"metaRemaining,omitempty"`
	MetaStartPos  uint64 `json:"metaStartPos,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
}

type HolderResult struct {
	Owner        string   `json:"owner"`
	ShareIDs     []uint64 `json:"shareIds"`
	TotalDeposit string   `json:"totalDeposit"`
	AccruedYield string   `json:"accruedYield"`
}

type InfoResult struct {
	TotalUnits       uint64 `json:"totalUnits"`
	TotalValueLocked string `json:"totalValueLocked"`
	NextUnitPrice    string `json:"nextUnitPrice"`
	UnitScale        string `json:"unitScale"`
	FeeBps           uint64 `json:"feeBps"`
}

func shareResultFrom(share *vault.Share) ShareResult {
	return ShareResult{
		ID:            share.ID,
		Owner:         encodeOwner(share.Owner),
		Kind:          share.Kind.String(),
		DepositValue:  share.DepositValue.String(),
		OriginalValue: share.OriginalValue.String(),
		AccruedYield:  share.AccruedYield.String(),
		MetaRemaining: share.MetaRemaining,
		MetaStartPos:  share.MetaStartPos,
		CreatedAt:     share.CreatedAt,
	}
}

func encodeOwner(owner [20]byte) string {
	addr, err := crypto.NewAddress(crypto.XMBLPrefix, owner[:])
	if err != nil {
		return ""
	}
	return addr.String()
}

func decodeOwner(encoded string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(encoded)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

func parseAmount(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New("amount must be a base-10 integer")
	}
	return value, nil
}

func decodeSingleParam(req *RPCRequest, dst interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("parameter object required")
	}
	return json.Unmarshal(req.Params[0], dst)
}

// writeVaultError maps ledger sentinel errors to JSON-RPC error codes.
func writeVaultError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, vault.ErrShareNotFound):
		writeError(w, http.StatusNotFound, id, codeNotFound, err.Error(), nil)
	case errors.Is(err, vault.ErrInvalidOwner),
		errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, vault.ErrInvalidMintCount),
		errors.Is(err, vault.ErrInvalidYieldAmount):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	case errors.Is(err, vault.ErrArithmeticOverflow):
		writeError(w, http.StatusUnprocessableEntity, id, codeOverflow, err.Error(), nil)
	case errors.Is(err, vault.ErrInsufficientDeposit),
		errors.Is(err, vault.ErrNotMetaOwner),
		errors.Is(err, vault.ErrNotAMetaShare),
		errors.Is(err, vault.ErrNoActiveDeposits),
		errors.Is(err, vault.ErrNotShareOwner),
		errors.Is(err, vault.ErrNothingToClaim),
		errors.Is(err, vault.ErrNoYieldToClaim),
		errors.Is(err, vault.ErrUnclaimedYield):
		writeError(w, http.StatusConflict, id, codePreconditionFailed, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) handleIssue(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params issueParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid issue parameters", err.Error())
		return
	}
	owner, err := decodeOwner(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode owner address", err.Error())
		return
	}
	deposit, err := parseAmount(params.Deposit)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid deposit amount", err.Error())
		return
	}
	result, err := s.ledger.Issue(owner, deposit)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	s.notifyMutation()
	writeResult(w, req.ID, IssueResult{
		ShareID:   result.ShareID,
		Kind:      result.Kind.String(),
		Units:     result.Units,
		TotalCost: result.TotalCost.String(),
		Remainder: result.Remainder.String(),
	})
}

func (s *Server) handleMintFromMeta(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params mintFromMetaParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid mint parameters", err.Error())
		return
	}
	caller, err := decodeOwner(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode caller address", err.Error())
		return
	}
	minted, err := s.ledger.MintFromMeta(params.MetaID, params.Count, caller)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	s.notifyMutation()
	writeResult(w, req.ID, MintFromMetaResult{MintedShareIDs: minted})
}

func (s *Server) handleDistribute(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params distributeParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid distribute parameters", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid yield amount", err.Error())
		return
	}
	outcome, err := s.ledger.Distribute(amount)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	s.notifyMutation()
	perShare := make(map[string]string, len(outcome.PerShare))
	for id, credit := range outcome.PerShare {
		perShare[strconv.FormatUint(id, 10)] = credit.String()
	}
	writeResult(w, req.ID, DistributeResult{
		Total:    outcome.Total.String(),
		Credited: outcome.Credited.String(),
		Dust:     outcome.Dust.String(),
		Holders:  outcome.Holders,
		PerShare: perShare,
	})
}

func (s *Server) handleClaim(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params shareRefParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid claim parameters", err.Error())
		return
	}
	caller, err := decodeOwner(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode caller address", err.Error())
		return
	}
	amount, err := s.ledger.Claim(params.ShareID, caller)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	s.notifyMutation()
	writeResult(w, req.ID, ClaimResult{Amount: amount.String()})
}

func (s *Server) handleClaimMultiple(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params claimMultipleParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid claim parameters", err.Error())
		return
	}
	caller, err := decodeOwner(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode caller address", err.Error())
		return
	}
	amount, err := s.ledger.ClaimMultiple(params.ShareIDs, caller)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	s.notifyMutation()
	writeResult(w, req.ID, ClaimResult{Amount: amount.String()})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params shareRefParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid withdraw parameters", err.Error())
		return
	}
	caller, err := decodeOwner(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode caller address", err.Error())
		return
	}
	refund, err := s.ledger.Withdraw(params.ShareID, caller)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	s.notifyMutation()
	writeResult(w, req.ID, WithdrawResult{Refund: refund.String()})
}

func (s *Server) handleTransfer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params transferParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transfer parameters", err.Error())
		return
	}
	caller, err := decodeOwner(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode caller address", err.Error())
		return
	}
	newOwner, err := decodeOwner(params.NewOwner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode new owner address", err.Error())
		return
	}
	if err := s.ledger.Transfer(params.ShareID, caller, newOwner); err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	s.notifyMutation()
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetShare(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params getShareParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid share parameters", err.Error())
		return
	}
	share, err := s.ledger.Share(params.ShareID)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, shareResultFrom(share))
}

func (s *Server) handleGetHolder(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params getHolderParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid holder parameters", err.Error())
		return
	}
	owner, err := decodeOwner(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode owner address", err.Error())
		return
	}
	summary := s.ledger.HolderSummary(owner)
	writeResult(w, req.ID, HolderResult{
		Owner:        params.Owner,
		ShareIDs:     summary.ShareIDs,
		TotalDeposit: summary.TotalDeposit.String(),
		AccruedYield: summary.AccruedYield.String(),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	params := s.ledger.CurveParams()
	next, err := s.ledger.NextUnitPrice()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, InfoResult{
		TotalUnits:       s.ledger.TotalUnitsIssued(),
		TotalValueLocked: s.ledger.TotalValueLocked().String(),
		NextUnitPrice:    next.String(),
		UnitScale:        params.UnitScale.String(),
		FeeBps:           params.FeeBps,
	})
}
