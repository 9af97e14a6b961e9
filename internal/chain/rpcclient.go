package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dota-dot20/indexer/internal/model"
)

// RPCClient speaks JSON-RPC 2.0 over HTTP to a substrate-style node. It uses
// the standard `system_chain`, `chain_getFinalizedHead` and `chain_getHeader`
// RPCs, plus a `dot20_getRemarks` convenience call the node is expected to
// expose for bulk remark retrieval (avoiding one round-trip per extrinsic).
type RPCClient struct {
	http *resty.Client
	id   int
}

// New builds an RPCClient against url (e.g. "http://localhost:9944").
func New(url string) (Client, error) {
	if url == "" {
		return nil, fmt.Errorf("chain url is empty")
	}
	c := resty.New().
		SetBaseURL(url).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &RPCClient{http: c}, nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	c.id++
	req := rpcRequest{JSONRPC: "2.0", ID: c.id, Method: method, Params: params}

	resp, err := c.http.R().SetContext(ctx).SetBody(req).Post("/")
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: http status %d: %s", method, resp.StatusCode(), resp.String())
	}

	var rr rpcResponse
	if err := json.Unmarshal(resp.Body(), &rr); err != nil {
		return fmt.Errorf("%s: decode envelope: %w", method, err)
	}
	if rr.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s", method, rr.Error.Code, rr.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(rr.Result, out)
}

func (c *RPCClient) ChainName(ctx context.Context) (string, error) {
	var name string
	if err := c.call(ctx, "system_chain", []interface{}{}, &name); err != nil {
		return "", err
	}
	return name, nil
}

func (c *RPCClient) FinalizedHead(ctx context.Context) (uint64, error) {
	var hash string
	if err := c.call(ctx, "chain_getFinalizedHead", []interface{}{}, &hash); err != nil {
		return 0, err
	}
	var header struct {
		Number string `json:"number"`
	}
	if err := c.call(ctx, "chain_getHeader", []interface{}{hash}, &header); err != nil {
		return 0, err
	}
	return parseHexUint(header.Number)
}

// wireRemark is the shape the node's dot20_getRemarks call returns: one
// per remark extrinsic found in the requested block.
type wireRemark struct {
	ExtrinsicIdx uint32 `json:"extrinsicIndex"`
	BatchAllIdx  uint32 `json:"batchAllIndex"`
	RemarkIdx    uint32 `json:"remarkIndex"`
	Origin       string `json:"origin"`
	Signer       string `json:"signer"`
	Data         string `json:"data"`
}

func (c *RPCClient) FetchRemarks(ctx context.Context, num uint64) ([]model.RawRemark, error) {
	var wire []wireRemark
	if err := c.call(ctx, "dot20_getRemarks", []interface{}{num}, &wire); err != nil {
		return nil, err
	}

	out := make([]model.RawRemark, 0, len(wire))
	for _, w := range wire {
		out = append(out, model.RawRemark{
			BlockNum:     num,
			ExtrinsicIdx: w.ExtrinsicIdx,
			BatchAllIdx:  w.BatchAllIdx,
			RemarkIdx:    w.RemarkIdx,
			Origin:       w.Origin,
			User:         w.Signer,
			MemoJSON:     []byte(w.Data),
		})
	}
	return out, nil
}

func parseHexUint(hex string) (uint64, error) {
	var n uint64
	if _, err := fmt.Sscanf(hex, "0x%x", &n); err != nil {
		return 0, fmt.Errorf("malformed block number %q: %w", hex, err)
	}
	return n, nil
}
