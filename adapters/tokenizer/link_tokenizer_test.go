package tokenizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkTokenizer_RoundTrip(t *testing.T) {
	tk := NewLinkTokenizer([]byte("test-secret"), time.Minute)

	token, err := tk.Mint("requester-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	requesterID, err := tk.RequesterID(token)
	require.NoError(t, err)
	assert.Equal(t, "requester-1", requesterID)
}

func TestLinkTokenizer_WrongSecret(t *testing.T) {
	minter := NewLinkTokenizer([]byte("secret-a"), time.Minute)
	checker := NewLinkTokenizer([]byte("secret-b"), time.Minute)

	token, err := minter.Mint("requester-1")
	require.NoError(t, err)

	_, err = checker.RequesterID(token)
	assert.Error(t, err)
}

func TestLinkTokenizer_Expired(t *testing.T) {
	tk := NewLinkTokenizer([]byte("test-secret"), -time.Minute)

	token, err := tk.Mint("requester-1")
	require.NoError(t, err)

	_, err = tk.RequesterID(token)
	assert.Error(t, err)
}

func TestLinkTokenizer_Garbage(t *testing.T) {
	tk := NewLinkTokenizer([]byte("test-secret"), time.Minute)

	_, err := tk.RequesterID("not-a-token")
	assert.Error(t, err)
}
