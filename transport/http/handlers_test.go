package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xblckmrq/signatory-role/adapters/signer"
	"github.com/0xblckmrq/signatory-role/adapters/store"
	"github.com/0xblckmrq/signatory-role/adapters/tokenizer"
	"github.com/0xblckmrq/signatory-role/core"
	"github.com/0xblckmrq/signatory-role/ports"
	"github.com/0xblckmrq/signatory-role/service"
)

type fakeAllowlist struct {
	entries []core.AllowlistEntry
}

func (f *fakeAllowlist) Fetch(ctx context.Context) ([]core.AllowlistEntry, error) {
	return f.entries, nil
}

type fakeWorkspaces struct{}

func (f *fakeWorkspaces) Open(ctx context.Context, requesterID, displayName string) (*core.Workspace, error) {
	return &core.Workspace{ID: "ws-1", RequesterID: requesterID, Name: core.WorkspaceName(displayName)}, nil
}

func (f *fakeWorkspaces) Close(ctx context.Context, workspace *core.Workspace) error { return nil }

func (f *fakeWorkspaces) Post(ctx context.Context, workspace *core.Workspace, text string) error {
	return nil
}

type fakeRoles struct {
	held map[string]bool
}

func (f *fakeRoles) Grant(ctx context.Context, requesterID string) error {
	f.held[requesterID] = true
	return nil
}

func (f *fakeRoles) Has(ctx context.Context, requesterID string) (bool, error) {
	return f.held[requesterID], nil
}

type testEnv struct {
	router    *gin.Engine
	svc       *service.VerificationService
	links     ports.LinkTokenizer
	allowlist *fakeAllowlist
	roles     *fakeRoles
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.DiscardHandler)
	links := tokenizer.NewLinkTokenizer([]byte("test-secret"), time.Minute)
	allow := &fakeAllowlist{}
	roles := &fakeRoles{held: make(map[string]bool)}

	svc := service.NewVerificationService(service.Deps{
		Allowlist:  allow,
		Verifier:   signer.NewEthereumVerifier(),
		Challenges: store.NewMemoryChallengeStore(),
		Cooldowns:  store.NewMemoryCooldownTracker(),
		Workspaces: &fakeWorkspaces{},
		Roles:      roles,
		Links:      links,
	}, service.Config{PublicBaseURL: "https://verify.example.test"}, logger)

	return &testEnv{
		router:    SetupRouter(svc, links, "", logger),
		svc:       svc,
		links:     links,
		allowlist: allow,
		roles:     roles,
	}
}

func (e *testEnv) post(t *testing.T, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/signature", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func newWallet(t *testing.T) (wallet string, sign func(message string) string) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	wallet = strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	sign = func(message string) string {
		sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
		require.NoError(t, err)
		sig[crypto.RecoveryIDOffset] += 27
		return hexutil.Encode(sig)
	}
	return wallet, sign
}

func TestSubmitSignature_SuccessWithRequesterID(t *testing.T) {
	env := newTestEnv(t)
	wallet, sign := newWallet(t)
	env.allowlist.entries = []core.AllowlistEntry{{
		WalletAddress:  wallet,
		CovenantStatus: core.CovenantSigned,
		HumanityStatus: core.HumanityVerified,
	}}

	begin, err := env.svc.Begin(context.Background(), "requester-1", "user", wallet)
	require.NoError(t, err)

	rec := env.post(t, gin.H{
		"requesterId": "requester-1",
		"signature":   sign(begin.Challenge.Message),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, wallet, body["wallet"])
	assert.True(t, env.roles.held["requester-1"])
}

func TestSubmitSignature_SuccessWithLinkToken(t *testing.T) {
	env := newTestEnv(t)
	wallet, sign := newWallet(t)
	env.allowlist.entries = []core.AllowlistEntry{{
		WalletAddress:  wallet,
		CovenantStatus: core.CovenantSigned,
		HumanityStatus: core.HumanityVerified,
	}}

	begin, err := env.svc.Begin(context.Background(), "requester-1", "user", wallet)
	require.NoError(t, err)

	token, err := env.links.Mint("requester-1")
	require.NoError(t, err)

	rec := env.post(t, gin.H{
		"token":     token,
		"signature": sign(begin.Challenge.Message),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.roles.held["requester-1"])
}

func TestSubmitSignature_SecondSubmitIsGone(t *testing.T) {
	env := newTestEnv(t)
	wallet, sign := newWallet(t)
	env.allowlist.entries = []core.AllowlistEntry{{
		WalletAddress:  wallet,
		CovenantStatus: core.CovenantSigned,
		HumanityStatus: core.HumanityVerified,
	}}

	begin, err := env.svc.Begin(context.Background(), "requester-1", "user", wallet)
	require.NoError(t, err)
	signature := sign(begin.Challenge.Message)

	rec := env.post(t, gin.H{"requesterId": "requester-1", "signature": signature})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.post(t, gin.H{"requesterId": "requester-1", "signature": signature})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no active challenge")
}

func TestSubmitSignature_ErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	wallet, _ := newWallet(t)
	_, otherSign := newWallet(t)
	env.allowlist.entries = []core.AllowlistEntry{{
		WalletAddress:  wallet,
		CovenantStatus: core.CovenantSigned,
		HumanityStatus: core.HumanityVerified,
	}}

	begin, err := env.svc.Begin(context.Background(), "requester-1", "user", wallet)
	require.NoError(t, err)

	tests := []struct {
		name       string
		body       gin.H
		wantStatus int
	}{
		{
			name:       "missing signature",
			body:       gin.H{"requesterId": "requester-1"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing identity",
			body:       gin.H{"signature": "0xdeadbeef"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid link token",
			body:       gin.H{"token": "bogus", "signature": "0xdeadbeef"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid signature",
			body:       gin.H{"requesterId": "requester-1", "signature": "garbage"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wallet mismatch",
			body:       gin.H{"requesterId": "requester-1", "signature": otherSign(begin.Challenge.Message)},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no challenge",
			body:       gin.H{"requesterId": "requester-2", "signature": "0x" + strings.Repeat("ab", 65)},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.post(t, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, fmt.Sprintf("body: %s", rec.Body.String()))
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
