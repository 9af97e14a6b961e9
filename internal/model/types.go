// Package model defines the data types shared across the dot-20 engine: the
// wire-level remark/memo shapes, the persisted ticker/balance/approval rows,
// and indexer progress.
package model

// Op identifies a memo's operation tag. Memo is a sum type keyed on Op; every
// switch over Op should be total (the default case is a protocol error, not a
// silent no-op).
type Op string

const (
	OpDeploy       Op = "deploy"
	OpMint         Op = "mint"
	OpTransfer     Op = "transfer"
	OpTransferFrom Op = "transferFrom"
	OpApprove      Op = "approve"
	OpMemo         Op = "memo"
)

// SupportedOps lists every op the protocol recognizes (rule R1).
var SupportedOps = map[Op]bool{
	OpDeploy:       true,
	OpMint:         true,
	OpTransfer:     true,
	OpTransferFrom: true,
	OpApprove:      true,
	OpMemo:         true,
}

// Mode is a ticker's governance mode.
type Mode string

const (
	ModeFair   Mode = "fair"
	ModeNormal Mode = "normal"
	ModeOwner  Mode = "owner"
)

// Memo is the tagged payload carried by a remark. Exactly one of the typed
// fields is non-nil, matching Op. A flat struct with one pointer field per op
// keeps decode/normalize code a single switch instead of a type-assertion
// chain, while still giving Base Filter one place (Op) to match on
// exhaustively.
type Memo struct {
	Op Op

	Deploy       *DeployMemo
	Mint         *MintMemo
	Transfer     *TransferMemo
	TransferFrom *TransferFromMemo
	Approve      *ApproveMemo
	Text         *TextMemo
}

// DeployMemo creates a new ticker.
type DeployMemo struct {
	Tick string
	Mode Mode
	Amt  uint64
	// Lim caps the per-mint amount for normal-mode tickers. Optional; zero
	// means uncapped.
	Lim uint64
}

// MintMemo requests an emission of units to To. Lim is a placeholder in fair
// mode (Base Filter rule R7 forces it to 1; the Executor recomputes the real
// per-remark share) and the submitter-declared per-mint amount in normal
// mode.
type MintMemo struct {
	Tick string
	To   string
	Lim  uint64
}

// TransferMemo moves units from the submitting user to To.
type TransferMemo struct {
	Tick string
	To   string
	Amt  uint64
}

// TransferFromMemo moves units out of From's balance on Spender's authority,
// decrementing the standing approval.
type TransferFromMemo struct {
	Tick string
	From string
	To   string
	Amt  uint64
}

// ApproveMemo authorizes Spender to move up to Amt of the submitting user's
// balance.
type ApproveMemo struct {
	Tick    string
	Spender string
	Amt     uint64
}

// TextMemo is the batch terminator (rules R4/R5); its Text is copied onto the
// preceding remarks of the batch as MemoRemark and the terminator itself is
// then dropped.
type TextMemo struct {
	Text string
}

// RawRemark is what the Chain Client hands the engine: one dot-20 remark
// decoded from an extrinsic, with its memo still raw JSON pending structural
// validation.
type RawRemark struct {
	BlockNum     uint64
	ExtrinsicIdx uint32
	BatchAllIdx  uint32
	RemarkIdx    uint32
	Origin       string
	User         string
	MemoJSON     []byte
}

// Remark is a RawRemark whose memo has been parsed and normalized (tick
// lowercased/ASCII-escaped, mint `to`/`lim` placeholders filled in). This is
// the unit the Grouper, Base Filter and Classifier operate on.
type Remark struct {
	BlockNum     uint64
	ExtrinsicIdx uint32
	BatchAllIdx  uint32
	RemarkIdx    uint32
	Origin       string
	User         string
	Memo         Memo
	// MemoRemark holds the text copied from a trailing `memo` terminator
	// (rule R5), if any.
	MemoRemark *string
}

// Batch is one batch-all's surviving remarks, in arrival order.
type Batch []Remark

// DeployInfo is the persisted ticker registry row.
type DeployInfo struct {
	Tick        string
	Mode        Mode
	Deployer    string
	Amt         uint64
	Lim         uint64
	TotalSupply uint64
	// Remaining is signed because owner-mode deployers may mint past the
	// declared supply (spec §3 invariant exemption); fair/normal tickers
	// never drive it negative.
	Remaining int64
}

// IndexerStatus is the persisted indexer progress row.
type IndexerStatus struct {
	Protocol      string
	IndexerHeight uint64
	CrawlerHeight uint64
}
