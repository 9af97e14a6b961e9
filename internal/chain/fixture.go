package chain

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dota-dot20/indexer/internal/model"
)

// Fixture is an in-memory Client for tests and local fixture-driven runs: it
// serves a fixed chain name and a pre-loaded map of block number -> remarks,
// with no network involved.
type Fixture struct {
	Name    string
	Head    uint64
	Blocks  map[uint64][]model.RawRemark
	DialErr error
}

// NewFixture builds an empty Fixture reporting chain name and head.
func NewFixture(name string, head uint64) *Fixture {
	return &Fixture{Name: name, Head: head, Blocks: make(map[uint64][]model.RawRemark)}
}

// AddRemark appends a synthetic remark to block num, stamping a random
// origin address when origin is left blank.
func (f *Fixture) AddRemark(num uint64, extrinsicIdx, batchAllIdx, remarkIdx uint32, origin, user string, memoJSON []byte) {
	if origin == "" {
		origin = "synthetic-" + uuid.NewString()
	}
	f.Blocks[num] = append(f.Blocks[num], model.RawRemark{
		BlockNum:     num,
		ExtrinsicIdx: extrinsicIdx,
		BatchAllIdx:  batchAllIdx,
		RemarkIdx:    remarkIdx,
		Origin:       origin,
		User:         user,
		MemoJSON:     memoJSON,
	})
}

func (f *Fixture) ChainName(ctx context.Context) (string, error) { return f.Name, nil }

func (f *Fixture) FinalizedHead(ctx context.Context) (uint64, error) { return f.Head, nil }

func (f *Fixture) FetchRemarks(ctx context.Context, num uint64) ([]model.RawRemark, error) {
	if num > f.Head {
		return nil, fmt.Errorf("block %d is not yet finalized (head=%d)", num, f.Head)
	}
	return f.Blocks[num], nil
}
