package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"xmblvault/config"
	"xmblvault/crypto"
	"xmblvault/native/vault"
)

const testToken = "test-token"

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv(config.RPCTokenEnv, testToken)
	ledger, err := vault.NewLedger(vault.DefaultCurveParams())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return NewServer(ledger, nil)
}

func holderAddress(t *testing.T, index byte) string {
	t.Helper()
	raw := make([]byte, 20)
	raw[19] = index
	addr, err := crypto.NewAddress(crypto.XMBLPrefix, raw)
	if err != nil {
		t.Fatalf("new address: %v", err)
	}
	return addr.String()
}

func call(t *testing.T, s *Server, token, method string, params interface{}) (*rpcEnvelope, int) {
	t.Helper()
	var rawParams []json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("marshal params: %v", err)
		}
		rawParams = []json.RawMessage{encoded}
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: rawParams, ID: 1})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.handle(recorder, req)

	envelope := &rpcEnvelope{}
	if err := json.Unmarshal(recorder.Body.Bytes(), envelope); err != nil {
		t.Fatalf("decode response: %v (%s)", err, recorder.Body.String())
	}
	return envelope, recorder.Code
}

func TestIssueOverRPC(t *testing.T) {
	s := newTestServer(t)
	owner := holderAddress(t, 1)

	envelope, status := call(t, s, testToken, "vault_issue", issueParams{Owner: owner, Deposit: "60600000000"})
	if status != http.StatusOK || envelope.Error != nil {
		t.Fatalf("issue failed: status=%d err=%+v", status, envelope.Error)
	}
	var result IssueResult
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Kind != "meta" || result.Units != 3 {
		t.Fatalf("unexpected issue result: %+v", result)
	}
	if result.TotalCost != "60600000000" || result.Remainder != "0" {
		t.Fatalf("unexpected accounting: %+v", result)
	}

	envelope, status = call(t, s, "", "vault_getShare", getShareParams{ShareID: result.ShareID})
	if status != http.StatusOK || envelope.Error != nil {
		t.Fatalf("getShare failed: status=%d err=%+v", status, envelope.Error)
	}
	var share ShareResult
	if err := json.Unmarshal(envelope.Result, &share); err != nil {
		t.Fatalf("decode share: %v", err)
	}
	if share.Owner != owner || share.MetaRemaining != 3 {
		t.Fatalf("unexpected share: %+v", share)
	}
}

func TestMutatingMethodsRequireAuth(t *testing.T) {
	s := newTestServer(t)
	owner := holderAddress(t, 1)

	envelope, status := call(t, s, "", "vault_issue", issueParams{Owner: owner, Deposit: "60600000000"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if envelope.Error == nil || envelope.Error.Code != codeUnauthorized {
		t.Fatalf("unexpected error: %+v", envelope.Error)
	}

	envelope, status = call(t, s, "wrong-token", "vault_distribute", distributeParams{Amount: "100"})
	if status != http.StatusUnauthorized || envelope.Error == nil || envelope.Error.Code != codeUnauthorized {
		t.Fatalf("bad token accepted: status=%d err=%+v", status, envelope.Error)
	}
}

func TestPreconditionErrorsSurfaceAsCode(t *testing.T) {
	s := newTestServer(t)
	owner := holderAddress(t, 1)

	envelope, status := call(t, s, testToken, "vault_issue", issueParams{Owner: owner, Deposit: "5"})
	if status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
	if envelope.Error == nil || envelope.Error.Code != codePreconditionFailed {
		t.Fatalf("unexpected error: %+v", envelope.Error)
	}

	envelope, status = call(t, s, testToken, "vault_distribute", distributeParams{Amount: "100"})
	if status != http.StatusConflict || envelope.Error == nil || envelope.Error.Code != codePreconditionFailed {
		t.Fatalf("distribute without deposits: status=%d err=%+v", status, envelope.Error)
	}
}

func TestGetShareNotFound(t *testing.T) {
	s := newTestServer(t)
	envelope, status := call(t, s, "", "vault_getShare", getShareParams{ShareID: 42})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if envelope.Error == nil || envelope.Error.Code != codeNotFound {
		t.Fatalf("unexpected error: %+v", envelope.Error)
	}
}

func TestInfoReportsCurveState(t *testing.T) {
	s := newTestServer(t)
	envelope, status := call(t, s, "", "vault_info", nil)
	if status != http.StatusOK || envelope.Error != nil {
		t.Fatalf("info failed: status=%d err=%+v", status, envelope.Error)
	}
	var info InfoResult
	if err := json.Unmarshal(envelope.Result, &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.NextUnitPrice != "10100000000" {
		t.Fatalf("unexpected next unit price %q", info.NextUnitPrice)
	}
	if info.TotalUnits != 0 || info.TotalValueLocked != "0" {
		t.Fatalf("unexpected initial state: %+v", info)
	}
}

func TestUnknownMethod(t *testing.T) {
	s := newTestServer(t)
	envelope, status := call(t, s, "", "vault_unknown", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if envelope.Error == nil || envelope.Error.Code != codeMethodNotFound {
		t.Fatalf("unexpected error: %+v", envelope.Error)
	}
}

func TestRateLimitKicksIn(t *testing.T) {
	s := newTestServer(t)
	var limited bool
	for i := 0; i < requestBurst+5; i++ {
		envelope, status := call(t, s, "", "vault_info", nil)
		if status == http.StatusTooManyRequests {
			if envelope.Error == nil || envelope.Error.Code != codeRateLimited {
				t.Fatalf("unexpected limit error: %+v", envelope.Error)
			}
			limited = true
			break
		}
	}
	if !limited {
		t.Fatalf("expected rate limiter to engage after %d requests", requestBurst+5)
	}
}
