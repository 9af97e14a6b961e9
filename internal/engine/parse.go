package engine

import (
	"encoding/json"

	"github.com/dota-dot20/indexer/internal/model"
)

// wireMemo is the on-chain JSON shape of a memo. Every op has its own subset
// of required fields (rule R2); optional fields are pointers so "absent" is
// distinguishable from "zero".
type wireMemo struct {
	Op      string          `json:"op"`
	Tick    json.RawMessage `json:"tick,omitempty"`
	Mode    string          `json:"mode,omitempty"`
	Amt     *uint64         `json:"amt,omitempty"`
	Lim     *uint64         `json:"lim,omitempty"`
	To      *string         `json:"to,omitempty"`
	From    *string         `json:"from,omitempty"`
	Spender *string         `json:"spender,omitempty"`
	Text    *string         `json:"text,omitempty"`
}

// resolveTick extracts and normalizes the tick carried in raw JSON. Rule
// R (§4.3, normalization step 1) only lowercase-ASCII-escapes it "if
// memo.tick is a string"; a non-string tick (or an absent one) is returned
// unnormalized/empty so downstream validation can reject it on its own
// terms rather than this function inventing a tick value.
func resolveTick(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return NormalizeTick(s)
}

// ParseMemo decodes and structurally validates one remark's memo JSON (rules
// R1/R2). On success it returns a fully-typed Memo with its tick already
// normalized; on failure it returns a *model.ProtocolError describing which
// field was missing or malformed, which the Base Filter treats as "discard
// the batch".
func ParseMemo(raw []byte) (model.Memo, error) {
	var w wireMemo
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Memo{}, model.WrapProtocolError("malformed memo JSON", err)
	}

	op := model.Op(w.Op)
	if !model.SupportedOps[op] {
		return model.Memo{}, model.NewProtocolError("unsupported op: " + w.Op)
	}

	switch op {
	case model.OpDeploy:
		if len(w.Tick) == 0 || w.Amt == nil || w.Mode == "" {
			return model.Memo{}, model.NewProtocolError("deploy: missing tick/mode/amt")
		}
		mode := model.Mode(w.Mode)
		if mode != model.ModeFair && mode != model.ModeNormal && mode != model.ModeOwner {
			return model.Memo{}, model.NewProtocolError("deploy: unknown mode " + w.Mode)
		}
		var lim uint64
		if w.Lim != nil {
			lim = *w.Lim
		}
		return model.Memo{Op: op, Deploy: &model.DeployMemo{
			Tick: resolveTick(w.Tick), Mode: mode, Amt: *w.Amt, Lim: lim,
		}}, nil

	case model.OpMint:
		if len(w.Tick) == 0 {
			return model.Memo{}, model.NewProtocolError("mint: missing tick")
		}
		var to string
		if w.To != nil {
			to = *w.To
		}
		var lim uint64
		if w.Lim != nil {
			lim = *w.Lim
		}
		return model.Memo{Op: op, Mint: &model.MintMemo{
			Tick: resolveTick(w.Tick), To: to, Lim: lim,
		}}, nil

	case model.OpTransfer:
		if len(w.Tick) == 0 || w.To == nil || w.Amt == nil {
			return model.Memo{}, model.NewProtocolError("transfer: missing tick/to/amt")
		}
		return model.Memo{Op: op, Transfer: &model.TransferMemo{
			Tick: resolveTick(w.Tick), To: *w.To, Amt: *w.Amt,
		}}, nil

	case model.OpTransferFrom:
		if len(w.Tick) == 0 || w.From == nil || w.To == nil || w.Amt == nil {
			return model.Memo{}, model.NewProtocolError("transferFrom: missing tick/from/to/amt")
		}
		return model.Memo{Op: op, TransferFrom: &model.TransferFromMemo{
			Tick: resolveTick(w.Tick), From: *w.From, To: *w.To, Amt: *w.Amt,
		}}, nil

	case model.OpApprove:
		if len(w.Tick) == 0 || w.Spender == nil || w.Amt == nil {
			return model.Memo{}, model.NewProtocolError("approve: missing tick/spender/amt")
		}
		return model.Memo{Op: op, Approve: &model.ApproveMemo{
			Tick: resolveTick(w.Tick), Spender: *w.Spender, Amt: *w.Amt,
		}}, nil

	case model.OpMemo:
		if w.Text == nil {
			return model.Memo{}, model.NewProtocolError("memo: missing text")
		}
		return model.Memo{Op: op, Text: &model.TextMemo{Text: *w.Text}}, nil

	default:
		// Unreachable: op passed the SupportedOps check above.
		return model.Memo{}, model.NewProtocolError("unsupported op: " + w.Op)
	}
}

// Tick returns the memo's tick field, or "" for a memo op (which carries no
// tick).
func Tick(m model.Memo) string {
	switch m.Op {
	case model.OpDeploy:
		return m.Deploy.Tick
	case model.OpMint:
		return m.Mint.Tick
	case model.OpTransfer:
		return m.Transfer.Tick
	case model.OpTransferFrom:
		return m.TransferFrom.Tick
	case model.OpApprove:
		return m.Approve.Tick
	default:
		return ""
	}
}
