package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dota-dot20/indexer/internal/model"
)

func TestParseMemo_Deploy(t *testing.T) {
	m, err := ParseMemo([]byte(`{"op":"deploy","tick":"FOO","mode":"fair","amt":1000}`))
	require.NoError(t, err)
	require.Equal(t, model.OpDeploy, m.Op)
	require.Equal(t, "foo", m.Deploy.Tick)
	require.Equal(t, model.ModeFair, m.Deploy.Mode)
	require.Equal(t, uint64(1000), m.Deploy.Amt)
}

func TestParseMemo_DeployMissingFields(t *testing.T) {
	_, err := ParseMemo([]byte(`{"op":"deploy","tick":"foo"}`))
	require.Error(t, err)
	require.True(t, model.IsProtocolError(err))
}

func TestParseMemo_DeployUnknownMode(t *testing.T) {
	_, err := ParseMemo([]byte(`{"op":"deploy","tick":"foo","mode":"weird","amt":1}`))
	require.Error(t, err)
}

func TestParseMemo_MintLeavesToUnset(t *testing.T) {
	m, err := ParseMemo([]byte(`{"op":"mint","tick":"foo"}`))
	require.NoError(t, err)
	require.Equal(t, "", m.Mint.To) // R8 fill-in happens in the Base Filter, not here.
}

func TestParseMemo_UnsupportedOp(t *testing.T) {
	_, err := ParseMemo([]byte(`{"op":"selfdestruct"}`))
	require.Error(t, err)
	require.True(t, model.IsProtocolError(err))
}

func TestParseMemo_MalformedJSON(t *testing.T) {
	_, err := ParseMemo([]byte(`not json`))
	require.Error(t, err)
	require.True(t, model.IsProtocolError(err))
}

func TestParseMemo_Transfer(t *testing.T) {
	m, err := ParseMemo([]byte(`{"op":"transfer","tick":"foo","to":"bob","amt":5}`))
	require.NoError(t, err)
	require.Equal(t, "bob", m.Transfer.To)
	require.Equal(t, uint64(5), m.Transfer.Amt)
}

func TestParseMemo_ApproveMissingSpender(t *testing.T) {
	_, err := ParseMemo([]byte(`{"op":"approve","tick":"foo","amt":5}`))
	require.Error(t, err)
}

func TestParseMemo_MemoText(t *testing.T) {
	m, err := ParseMemo([]byte(`{"op":"memo","text":"done"}`))
	require.NoError(t, err)
	require.Equal(t, "done", m.Text.Text)
	require.Equal(t, "", Tick(m))
}
