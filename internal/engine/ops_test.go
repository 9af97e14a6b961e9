package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dota-dot20/indexer/internal/model"
	"github.com/dota-dot20/indexer/internal/store/memstore"
)

func TestOps_DeployRejectsDuplicateTick(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	tx, err := st.BeginDeploy(ctx)
	require.NoError(t, err)
	require.NoError(t, Deploy(ctx, tx, model.DeployMemo{Tick: "foo", Mode: model.ModeNormal, Amt: 100}, "alice"))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := st.BeginDeploy(ctx)
	require.NoError(t, err)
	err = Deploy(ctx, tx2, model.DeployMemo{Tick: "foo", Mode: model.ModeNormal, Amt: 100}, "alice")
	require.True(t, model.IsProtocolError(err))
	require.NoError(t, tx2.Rollback(ctx))
}

func TestOps_TransferFromRequiresApprovalAndBalance(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	tx, err := st.BeginDeploy(ctx)
	require.NoError(t, err)
	require.NoError(t, Deploy(ctx, tx, model.DeployMemo{Tick: "foo", Mode: model.ModeOwner, Amt: 100}, "alice"))
	require.NoError(t, tx.Commit(ctx))

	outer, err := st.Begin(ctx)
	require.NoError(t, err)
	sp, err := outer.Savepoint(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, Mint(ctx, sp, "foo", model.ModeOwner, "alice", "alice", "bob", 20))
	require.NoError(t, Approve(ctx, sp, "foo", "bob", model.ApproveMemo{Spender: "carol", Amt: 5}))

	err = TransferFrom(ctx, sp, "foo", "carol", model.TransferFromMemo{From: "bob", To: "dave", Amt: 10})
	require.True(t, model.IsProtocolError(err), "exceeds the 5-unit approval")

	require.NoError(t, TransferFrom(ctx, sp, "foo", "carol", model.TransferFromMemo{From: "bob", To: "dave", Amt: 5}))
	require.NoError(t, sp.Release(ctx))

	bal, err := sp.GetBalance(ctx, "foo", "dave")
	require.NoError(t, err)
	require.Equal(t, uint64(5), bal)
}

func TestOps_MintOwnerModeRestrictedToDeployer(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	tx, err := st.BeginDeploy(ctx)
	require.NoError(t, err)
	require.NoError(t, Deploy(ctx, tx, model.DeployMemo{Tick: "foo", Mode: model.ModeOwner, Amt: 100}, "alice"))
	require.NoError(t, tx.Commit(ctx))

	outer, err := st.Begin(ctx)
	require.NoError(t, err)
	sp, err := outer.Savepoint(ctx, "s1")
	require.NoError(t, err)

	err = Mint(ctx, sp, "foo", model.ModeOwner, "alice", "mallory", "mallory", 10)
	require.True(t, model.IsProtocolError(err))
}
