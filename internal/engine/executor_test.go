package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dota-dot20/indexer/internal/model"
	"github.com/dota-dot20/indexer/internal/store/memstore"
)

func TestExecutor_DeployThenNormalMint(t *testing.T) {
	st := memstore.New()
	ex := NewExecutor(st, testLogger())
	ctx := context.Background()

	deploy := model.Remark{User: "alice", Memo: model.Memo{Op: model.OpDeploy, Deploy: &model.DeployMemo{Tick: "foo", Mode: model.ModeNormal, Amt: 1000, Lim: 10}}}
	require.NoError(t, ex.Execute(ctx, 1, Classification{DeployList: []model.Remark{deploy}}))

	info, err := st.GetDeployInfo(ctx, "foo")
	require.NoError(t, err)
	require.Equal(t, int64(1000), info.Remaining)

	mint := model.Remark{User: "bob", Memo: model.Memo{Op: model.OpMint, Mint: &model.MintMemo{Tick: "foo", To: "bob", Lim: 10}}}
	c := Classification{MintsByTick: map[string][]model.Remark{"foo": {mint}}}
	require.NoError(t, ex.Execute(ctx, 2, c))

	info, err = st.GetDeployInfo(ctx, "foo")
	require.NoError(t, err)
	require.Equal(t, int64(990), info.Remaining)

	status, err := st.GetIndexerStatus(ctx, "dot-20")
	require.NoError(t, err)
	require.Equal(t, uint64(2), status.IndexerHeight)
}

func TestExecutor_FairSplitAcrossMints(t *testing.T) {
	st := memstore.New()
	ex := NewExecutor(st, testLogger())
	ctx := context.Background()

	deploy := model.Remark{User: "alice", Memo: model.Memo{Op: model.OpDeploy, Deploy: &model.DeployMemo{Tick: "bar", Mode: model.ModeFair, Amt: 100}}}
	require.NoError(t, ex.Execute(ctx, 1, Classification{DeployList: []model.Remark{deploy}}))

	mints := []model.Remark{
		{User: "u1", Memo: model.Memo{Op: model.OpMint, Mint: &model.MintMemo{Tick: "bar", To: "u1", Lim: 1}}},
		{User: "u2", Memo: model.Memo{Op: model.OpMint, Mint: &model.MintMemo{Tick: "bar", To: "u2", Lim: 1}}},
		{User: "u3", Memo: model.Memo{Op: model.OpMint, Mint: &model.MintMemo{Tick: "bar", To: "u3", Lim: 1}}},
	}
	c := Classification{MintsByTick: map[string][]model.Remark{"bar": mints}}
	require.NoError(t, ex.Execute(ctx, 2, c))

	info, err := st.GetDeployInfo(ctx, "bar")
	require.NoError(t, err)
	require.Equal(t, int64(1), info.Remaining) // 100/3 = 33 each, 99 minted, 1 remainder burned
}

func TestExecutor_DuplicateDeployIsProtocolErrorNotFatal(t *testing.T) {
	st := memstore.New()
	ex := NewExecutor(st, testLogger())
	ctx := context.Background()

	deploy := model.Remark{User: "alice", Memo: model.Memo{Op: model.OpDeploy, Deploy: &model.DeployMemo{Tick: "foo", Mode: model.ModeNormal, Amt: 1000}}}
	require.NoError(t, ex.Execute(ctx, 1, Classification{DeployList: []model.Remark{deploy}}))
	// Re-deploying the same tick is rejected at the protocol level and must
	// not abort block processing.
	require.NoError(t, ex.Execute(ctx, 2, Classification{DeployList: []model.Remark{deploy}}))
}

func TestExecutor_OtherBatchRollsBackAsAWhole(t *testing.T) {
	st := memstore.New()
	ex := NewExecutor(st, testLogger())
	ctx := context.Background()

	deploy := model.Remark{User: "alice", Memo: model.Memo{Op: model.OpDeploy, Deploy: &model.DeployMemo{Tick: "foo", Mode: model.ModeNormal, Amt: 1000}}}
	require.NoError(t, ex.Execute(ctx, 1, Classification{DeployList: []model.Remark{deploy}}))

	// bob has no balance: the transfer fails, and the approve in the same
	// batch must not be persisted either (batch atomicity, rule P2).
	batch := model.Batch{
		{User: "bob", Memo: model.Memo{Op: model.OpApprove, Approve: &model.ApproveMemo{Tick: "foo", Spender: "carol", Amt: 5}}},
		{User: "bob", Memo: model.Memo{Op: model.OpTransfer, Transfer: &model.TransferMemo{Tick: "foo", To: "dave", Amt: 10}}},
	}
	c := Classification{OtherBatches: []model.Batch{batch}}
	require.NoError(t, ex.Execute(ctx, 2, c))

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	sp, err := tx.Savepoint(ctx, "check")
	require.NoError(t, err)
	allowance, err := sp.GetApproval(ctx, "foo", "bob", "carol")
	require.NoError(t, err)
	require.Equal(t, uint64(0), allowance, "approve must not survive its batch's rollback")
	require.NoError(t, tx.Rollback(ctx))
}
