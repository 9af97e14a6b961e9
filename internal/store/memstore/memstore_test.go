package memstore

import (
	"testing"

	"github.com/dota-dot20/indexer/internal/store"
	"github.com/dota-dot20/indexer/internal/store/storetest"
)

func TestMemStore_ComplianceSuite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.LedgerStore { return New() })
}
