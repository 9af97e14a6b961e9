// Package driver runs the Block Driver loop: it pulls finalized blocks one
// at a time from a Chain Client and hands each to the Engine, only
// advancing its watermark on Engine success. Grounded on the backoff/retry
// shape of the teacher's indexer-prototype.Indexer.Run loop, generalized
// from a fixed polling heartbeat to the finality-gated, per-block advance
// the protocol requires.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/dota-dot20/indexer/internal/chain"
	"github.com/dota-dot20/indexer/internal/model"
)

// Engine is the subset of engine.Engine the driver depends on.
type Engine interface {
	ProcessBlock(ctx context.Context, blockNum uint64, remarks []model.RawRemark) error
}

// Driver drives the pipeline at one finalized block per iteration.
type Driver struct {
	client     chain.Client
	engine     Engine
	log        zerolog.Logger
	startBlock uint64
	delayBlock uint64
	pollEvery  time.Duration
	backoffMin time.Duration
	backoffMax time.Duration
}

// New builds a Driver starting at startBlock, waiting delayBlock
// confirmations behind the finalized head before fetching a block.
func New(client chain.Client, eng Engine, startBlock, delayBlock uint64, pollEvery, backoffMin, backoffMax time.Duration, log zerolog.Logger) *Driver {
	if delayBlock == 0 {
		delayBlock = 1
	}
	return &Driver{
		client:     client,
		engine:     eng,
		log:        log.With().Str("component", "driver").Logger(),
		delayBlock: delayBlock,
		pollEvery:  pollEvery,
		backoffMin: backoffMin,
		backoffMax: backoffMax,
		startBlock: startBlock,
	}
}

// Run blocks until ctx is cancelled or a fatal (non-transport) error is hit.
// Transport errors (chain disconnect, RPC failure) never advance startBlock
// and are retried with exponential backoff; any other error from the engine
// is treated as fatal and returned immediately.
func (d *Driver) Run(ctx context.Context) error {
	backoff := d.backoffMin
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		advanced, err := d.step(ctx)
		if err != nil {
			if isTransportError(err) {
				d.log.Warn().Err(err).Dur("retry_in", backoff).Msg("transport error, reconnecting")
				if !sleep(ctx, backoff) {
					return ctx.Err()
				}
				backoff = nextBackoff(backoff, d.backoffMax)
				continue
			}
			d.log.Error().Err(err).Uint64("block", d.startBlock).Msg("fatal error, stopping")
			return err
		}
		backoff = d.backoffMin

		if !advanced {
			if !sleep(ctx, d.pollEvery) {
				return ctx.Err()
			}
			continue
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		next = max
	}
	return next
}

// step performs one Block Driver iteration: check finality, fetch, process,
// and on success advance startBlock. Returns advanced=true only when
// startBlock actually moved.
func (d *Driver) step(ctx context.Context) (advanced bool, err error) {
	head, err := d.client.FinalizedHead(ctx)
	if err != nil {
		return false, &transportError{err}
	}
	if head < d.startBlock+d.delayBlock {
		return false, nil
	}

	remarks, err := d.client.FetchRemarks(ctx, d.startBlock)
	if err != nil {
		return false, &transportError{err}
	}

	if err := d.engine.ProcessBlock(ctx, d.startBlock, remarks); err != nil {
		return false, err
	}

	d.log.Info().Uint64("block", d.startBlock).Int("remarks", len(remarks)).Msg("block processed")
	d.startBlock++
	return true, nil
}

// StartBlock returns the next block the driver will fetch; used by the
// status surface and tests.
func (d *Driver) StartBlock() uint64 { return d.startBlock }

// transportError wraps a Chain Client failure so Run can distinguish it from
// a fatal storage/engine error without inspecting error strings.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isTransportError(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}
