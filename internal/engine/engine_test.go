package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dota-dot20/indexer/internal/model"
	"github.com/dota-dot20/indexer/internal/store/memstore"
)

func TestEngine_ProcessBlock_DeployThenMint(t *testing.T) {
	st := memstore.New()
	e := New(st, testLogger())
	ctx := context.Background()

	block1 := []model.RawRemark{
		{BlockNum: 1, ExtrinsicIdx: 0, BatchAllIdx: 0, RemarkIdx: 0, User: "alice",
			MemoJSON: []byte(`{"op":"deploy","tick":"foo","mode":"normal","amt":1000,"lim":10}`)},
	}
	require.NoError(t, e.ProcessBlock(ctx, 1, block1))

	block2 := []model.RawRemark{
		{BlockNum: 2, ExtrinsicIdx: 0, BatchAllIdx: 0, RemarkIdx: 0, User: "u1",
			MemoJSON: []byte(`{"op":"mint","tick":"foo","lim":10}`)},
	}
	require.NoError(t, e.ProcessBlock(ctx, 2, block2))

	info, err := st.GetDeployInfo(ctx, "foo")
	require.NoError(t, err)
	require.Equal(t, int64(990), info.Remaining)

	status, err := st.GetIndexerStatus(ctx, "dot-20")
	require.NoError(t, err)
	require.Equal(t, uint64(2), status.IndexerHeight)
}

func TestEngine_ProcessBlock_DuplicateMintSameBlock(t *testing.T) {
	st := memstore.New()
	e := New(st, testLogger())
	ctx := context.Background()

	deployBlock := []model.RawRemark{
		{BlockNum: 1, ExtrinsicIdx: 0, BatchAllIdx: 0, RemarkIdx: 0, User: "alice",
			MemoJSON: []byte(`{"op":"deploy","tick":"bar","mode":"fair","amt":101}`)},
	}
	require.NoError(t, e.ProcessBlock(ctx, 1, deployBlock))

	mintBlock := []model.RawRemark{
		{BlockNum: 2, ExtrinsicIdx: 0, BatchAllIdx: 0, RemarkIdx: 0, User: "u1", MemoJSON: []byte(`{"op":"mint","tick":"bar"}`)},
		{BlockNum: 2, ExtrinsicIdx: 1, BatchAllIdx: 0, RemarkIdx: 0, User: "u1", MemoJSON: []byte(`{"op":"mint","tick":"bar"}`)},
	}
	require.NoError(t, e.ProcessBlock(ctx, 2, mintBlock))

	info, err := st.GetDeployInfo(ctx, "bar")
	require.NoError(t, err)
	// One accepted mint takes the whole fair share (101/1); had the duplicate
	// been kept, two shares of 101/2 = 50 would leave 1 behind.
	require.Equal(t, int64(0), info.Remaining, "u1's second mint in the same block must be dropped")
}
