package allowlist

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xblckmrq/signatory-role/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFetch_ParsesEntries(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apiKey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"signers":[
			{"walletAddress":"0xAbCdEf1234","covenantStatus":"SIGNED","humanityStatus":"VERIFIED"},
			{"walletAddress":"0x999","covenantStatus":"PENDING","humanityStatus":"VERIFIED"},
			{"covenantStatus":"SIGNED","humanityStatus":"VERIFIED"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-key", testLogger())

	entries, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotKey)

	// The address-less record is rejected, addresses are folded to lowercase.
	require.Len(t, entries, 2)
	assert.Equal(t, "0xabcdef1234", entries[0].WalletAddress)
	assert.True(t, entries[0].Eligible())
	assert.False(t, entries[1].Eligible())
}

func TestFetch_MissingFieldIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count": 0}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", testLogger())

	entries, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_MalformedBodyFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", testLogger())

	entries, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_ProviderErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", testLogger())

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAllowlistUnavailable)
}

func TestFetch_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, "key", testLogger())

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAllowlistUnavailable)
}
