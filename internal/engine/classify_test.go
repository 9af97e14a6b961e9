package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dota-dot20/indexer/internal/model"
)

func batchOf(remarks ...model.Remark) model.Batch { return model.Batch(remarks) }

func TestClassify_PartitionsDeployMintOther(t *testing.T) {
	cache := NewTickModeCache()
	cache.Set("foo", model.ModeFair)
	cache.Set("bar", model.ModeOwner)

	deployBatch := batchOf(model.Remark{Memo: model.Memo{Op: model.OpDeploy, Deploy: &model.DeployMemo{Tick: "new"}}})
	mintBatch := batchOf(model.Remark{Origin: "alice", Memo: model.Memo{Op: model.OpMint, Mint: &model.MintMemo{Tick: "foo", Lim: 1}}})
	ownerMintBatch := batchOf(model.Remark{Origin: "bob", Memo: model.Memo{Op: model.OpMint, Mint: &model.MintMemo{Tick: "bar", Lim: 50}}})
	transferBatch := batchOf(model.Remark{Memo: model.Memo{Op: model.OpTransfer, Transfer: &model.TransferMemo{Tick: "foo"}}})

	c := Classify([]model.Batch{deployBatch, mintBatch, ownerMintBatch, transferBatch}, cache, testLogger())

	require.Len(t, c.DeployList, 1)
	require.Len(t, c.MintsByTick["foo"], 1)
	require.Len(t, c.OtherBatches, 2) // owner-mode mint + transfer
}

func TestClassify_DuplicateMintDropped(t *testing.T) {
	cache := NewTickModeCache()
	cache.Set("foo", model.ModeFair)

	first := batchOf(model.Remark{Origin: "alice", Memo: model.Memo{Op: model.OpMint, Mint: &model.MintMemo{Tick: "foo", Lim: 1}}})
	second := batchOf(model.Remark{Origin: "alice", Memo: model.Memo{Op: model.OpMint, Mint: &model.MintMemo{Tick: "foo", Lim: 1}}})

	c := Classify([]model.Batch{first, second}, cache, testLogger())
	require.Len(t, c.MintsByTick["foo"], 1)
}
