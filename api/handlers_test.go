/*
handlers_test.go - Unit tests for API handlers

Tests the full HTTP surface against an in-memory document store:
status codes, JSON bodies, and the error taxonomy mapping.
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/docstore"
	"github.com/warp/ledger-engine/logging"
)

func newTestServer(t *testing.T) *httptest.Server {
	store := docstore.NewMemory()
	handler := NewHandler(ledger.NewEngine(store), ledger.NewHistory(store), logging.NewNop())
	server := httptest.NewServer(NewRouter(handler, logging.NewNop(), nil))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeAccount(t *testing.T, resp *http.Response) AccountDTO {
	t.Helper()
	defer resp.Body.Close()
	var dto AccountDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dto))
	return dto
}

func createAccount(t *testing.T, server *httptest.Server, balance int64) AccountDTO {
	t.Helper()
	resp := postJSON(t, server.URL+"/api/accounts", CreateAccountRequest{InitialBalance: balance})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeAccount(t, resp)
}

// =============================================================================
// ACCOUNT ENDPOINTS
// =============================================================================

func TestAPI_CreateAccount_Returns201(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/accounts", CreateAccountRequest{InitialBalance: 100})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	dto := decodeAccount(t, resp)
	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, int64(100), dto.Balance)
}

func TestAPI_CreateAccount_BadBody_Returns400(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/accounts", "application/json",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_CreateAccount_NegativeBalance_Returns400(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/accounts", CreateAccountRequest{InitialBalance: -5})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetAccount(t *testing.T) {
	server := newTestServer(t)
	account := createAccount(t, server, 100)

	resp, err := http.Get(server.URL + "/api/accounts/" + account.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dto := decodeAccount(t, resp)
	assert.Equal(t, account, dto)
}

func TestAPI_GetAccount_Unknown_Returns404(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/accounts/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// MUTATION ENDPOINTS
// =============================================================================

func TestAPI_Deposit(t *testing.T) {
	server := newTestServer(t)
	account := createAccount(t, server, 100)

	resp := postJSON(t, fmt.Sprintf("%s/api/accounts/%s/deposit", server.URL, account.ID),
		AmountRequest{Amount: 25})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dto := decodeAccount(t, resp)
	assert.Equal(t, int64(125), dto.Balance)
}

func TestAPI_Withdraw_InsufficientFunds_Returns409(t *testing.T) {
	// GIVEN: An account with balance 50
	server := newTestServer(t)
	account := createAccount(t, server, 50)

	// WHEN: Withdrawing 75
	resp := postJSON(t, fmt.Sprintf("%s/api/accounts/%s/withdraw", server.URL, account.ID),
		AmountRequest{Amount: 75})
	defer resp.Body.Close()

	// THEN: 409, and the balance is untouched
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	getResp, err := http.Get(server.URL + "/api/accounts/" + account.ID)
	require.NoError(t, err)
	dto := decodeAccount(t, getResp)
	assert.Equal(t, int64(50), dto.Balance)
}

func TestAPI_Withdraw_ZeroAmount_Returns400(t *testing.T) {
	server := newTestServer(t)
	account := createAccount(t, server, 50)

	resp := postJSON(t, fmt.Sprintf("%s/api/accounts/%s/withdraw", server.URL, account.ID),
		AmountRequest{Amount: 0})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Transfer(t *testing.T) {
	server := newTestServer(t)
	a := createAccount(t, server, 100)
	b := createAccount(t, server, 0)

	resp := postJSON(t, fmt.Sprintf("%s/api/accounts/%s/transfer", server.URL, a.ID),
		TransferRequest{Amount: 40, TargetAccountID: b.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dto := decodeAccount(t, resp)
	assert.Equal(t, a.ID, dto.ID, "transfer responds with the source account")
	assert.Equal(t, int64(60), dto.Balance)

	getResp, err := http.Get(server.URL + "/api/accounts/" + b.ID)
	require.NoError(t, err)
	gotB := decodeAccount(t, getResp)
	assert.Equal(t, int64(40), gotB.Balance)
}

func TestAPI_Transfer_UnknownTarget_Returns404(t *testing.T) {
	server := newTestServer(t)
	a := createAccount(t, server, 100)

	resp := postJSON(t, fmt.Sprintf("%s/api/accounts/%s/transfer", server.URL, a.ID),
		TransferRequest{Amount: 40, TargetAccountID: uuid.NewString()})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// HISTORY ENDPOINTS
// =============================================================================

func TestAPI_History(t *testing.T) {
	server := newTestServer(t)
	account := createAccount(t, server, 100)

	resp := postJSON(t, fmt.Sprintf("%s/api/accounts/%s/deposit", server.URL, account.ID),
		AmountRequest{Amount: 10})
	resp.Body.Close()

	histResp, err := http.Get(fmt.Sprintf("%s/api/accounts/%s/history", server.URL, account.ID))
	require.NoError(t, err)
	defer histResp.Body.Close()
	require.Equal(t, http.StatusOK, histResp.StatusCode)

	var elements []HistoryElementDTO
	require.NoError(t, json.NewDecoder(histResp.Body).Decode(&elements))
	require.Len(t, elements, 2)
	assert.Equal(t, int64(110), elements[0].Balance) // newest first
	assert.Equal(t, int64(100), elements[1].Balance)
}

func TestAPI_Operations(t *testing.T) {
	server := newTestServer(t)
	account := createAccount(t, server, 100)

	resp, err := http.Get(fmt.Sprintf("%s/api/accounts/%s/operations", server.URL, account.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ops []OperationDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ops))
	require.Len(t, ops, 1)
	assert.Equal(t, "create", ops[0].Type)
	assert.Nil(t, ops[0].TargetAccountID)
}

func TestAPI_History_Unknown_Returns404(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/accounts/" + uuid.NewString() + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
