package chain

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConnect_SucceedsOnMatchingChain(t *testing.T) {
	attempts := 0
	dial := func(url string) (Client, error) {
		attempts++
		return NewFixture("dota-testnet", 10), nil
	}

	c, err := Connect(context.Background(), dial, "http://x", "dota-testnet", time.Millisecond, time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, 1, attempts)
}

func TestConnect_RetriesOnDialError(t *testing.T) {
	attempts := 0
	dial := func(url string) (Client, error) {
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("connection refused")
		}
		return NewFixture("dota-testnet", 10), nil
	}

	c, err := Connect(context.Background(), dial, "http://x", "dota-testnet", time.Millisecond, 2*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, 3, attempts)
}

func TestConnect_HardFailsOnChainMismatch(t *testing.T) {
	dial := func(url string) (Client, error) {
		return NewFixture("wrong-chain", 10), nil
	}

	_, err := Connect(context.Background(), dial, "http://x", "dota-testnet", time.Millisecond, time.Millisecond, zerolog.Nop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "wrong-chain")
}

func TestFixture_FetchRemarksRejectsUnfinalizedBlock(t *testing.T) {
	f := NewFixture("dota-testnet", 5)
	f.AddRemark(6, 0, 0, 0, "", "alice", []byte(`{"op":"deploy"}`))

	_, err := f.FetchRemarks(context.Background(), 6)
	require.Error(t, err)
}

func TestFixture_FetchRemarksReturnsLoadedBlock(t *testing.T) {
	f := NewFixture("dota-testnet", 5)
	f.AddRemark(3, 0, 0, 0, "", "alice", []byte(`{"op":"deploy","tick":"foo"}`))
	f.AddRemark(3, 1, 0, 0, "", "bob", []byte(`{"op":"mint","tick":"foo"}`))

	remarks, err := f.FetchRemarks(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, remarks, 2)
	require.NotEmpty(t, remarks[0].Origin)
}
