// Package chain abstracts the substrate-style node the indexer reads
// finalized remarks from. Client is the seam the Block Driver depends on;
// the production implementation (rpcclient.go) speaks JSON-RPC over HTTP,
// and tests use the in-memory Fixture client.
package chain

import (
	"context"

	"github.com/dota-dot20/indexer/internal/model"
)

// Client is everything the Block Driver needs from a chain node.
type Client interface {
	// ChainName returns the node's reported chain identity, used once at
	// connect time to guard against pointing the indexer at the wrong
	// network.
	ChainName(ctx context.Context) (string, error)
	// FinalizedHead returns the current finalized block number.
	FinalizedHead(ctx context.Context) (uint64, error)
	// FetchRemarks returns every dot-20 candidate remark in block num, in
	// on-chain order (extrinsic_index, batchall_index, remark_index).
	FetchRemarks(ctx context.Context, num uint64) ([]model.RawRemark, error)
}
