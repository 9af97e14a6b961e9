package engine

import (
	"context"

	"github.com/dota-dot20/indexer/internal/model"
	"github.com/dota-dot20/indexer/internal/store"
)

// Deploy creates tick's ticker metadata and per-tick storage (spec.md §4.6).
// It runs against a DeployTx, which owns its own outer transaction: deploy
// mixes DDL with the metadata insert and cannot share a transaction with
// row-level mutations. Fails with a ProtocolError if tick already exists.
func Deploy(ctx context.Context, tx store.DeployTx, memo model.DeployMemo, deployer string) error {
	if _, err := tx.GetDeployInfo(ctx, memo.Tick); err == nil {
		return model.NewProtocolError("tick already deployed: " + memo.Tick)
	} else if err != model.ErrNotFound {
		return err
	}

	info := model.DeployInfo{
		Tick:        memo.Tick,
		Mode:        memo.Mode,
		Deployer:    deployer,
		Amt:         memo.Amt,
		Lim:         memo.Lim,
		TotalSupply: memo.Amt,
		Remaining:   int64(memo.Amt),
	}
	return tx.CreateTicker(ctx, info)
}

// Mint credits lim units of tick to "to" and debits the ticker's remaining
// supply (spec.md §4.6). The Executor has already resolved lim: the
// per-remark fair share for fair mode, the submitter-declared (and
// deploy-capped) amount for normal mode, or the submitter-declared amount
// for owner mode. mode controls whether the remaining-supply check is
// strict (fair/normal) or advisory (owner).
func Mint(ctx context.Context, sp store.Savepoint, tick string, mode model.Mode, deployer, submitter, to string, lim uint64) error {
	if _, err := sp.GetDeployInfo(ctx, tick); err == model.ErrNotFound {
		return model.NewProtocolError("mint on undeployed tick: " + tick)
	} else if err != nil {
		return err
	}

	if mode == model.ModeOwner && submitter != deployer {
		return model.NewProtocolError("only the deployer may mint an owner-mode tick: " + tick)
	}

	strict := mode != model.ModeOwner
	if err := sp.DebitRemaining(ctx, tick, lim, strict); err != nil {
		return err
	}
	return sp.CreditBalance(ctx, tick, to, lim)
}

// Transfer moves amt of tick from the submitting user to memo.To (spec.md
// §4.6). Fails with a ProtocolError if from's balance is insufficient.
func Transfer(ctx context.Context, sp store.Savepoint, tick string, from string, memo model.TransferMemo) error {
	if err := sp.DebitBalance(ctx, tick, from, memo.Amt); err != nil {
		return err
	}
	return sp.CreditBalance(ctx, tick, memo.To, memo.Amt)
}

// Approve overwrites the standing (owner, spender) allowance for tick
// (spec.md §4.6). Not additive: a second approve replaces, rather than
// increments, the prior value.
func Approve(ctx context.Context, sp store.Savepoint, tick string, owner string, memo model.ApproveMemo) error {
	return sp.SetApproval(ctx, tick, owner, memo.Spender, memo.Amt)
}

// TransferFrom moves amt of tick from memo.From to memo.To on spender's
// authority, decrementing both the standing approval and memo.From's
// balance (spec.md §4.6). Fails with a ProtocolError if either is
// insufficient.
func TransferFrom(ctx context.Context, sp store.Savepoint, tick string, spender string, memo model.TransferFromMemo) error {
	if err := sp.DecrementApproval(ctx, tick, memo.From, spender, memo.Amt); err != nil {
		return err
	}
	if err := sp.DebitBalance(ctx, tick, memo.From, memo.Amt); err != nil {
		return err
	}
	return sp.CreditBalance(ctx, tick, memo.To, memo.Amt)
}
