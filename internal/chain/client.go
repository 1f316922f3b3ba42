package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"tipscope/internal/metrics"
)

// endpoint is one RPC candidate. Candidates are tried in priority order;
// the first is assumed unmetered, later ones may enforce span quotas.
type endpoint struct {
	url    string
	client *rpc.Client
}

// Client issues JSON-RPC calls against an ordered list of endpoint
// candidates, stopping at the first success. It holds no pipeline state.
type Client struct {
	endpoints []endpoint
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Dial connects to every endpoint candidate. At least one URL is required;
// HTTP endpoints connect lazily, so dial errors here mean malformed URLs.
func Dial(ctx context.Context, urls []string, m *metrics.Metrics, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one endpoint url is required")
	}

	endpoints := make([]endpoint, 0, len(urls))
	for _, url := range urls {
		rpcClient, err := rpc.DialContext(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", url, err)
		}
		endpoints = append(endpoints, endpoint{url: url, client: rpcClient})
	}

	return &Client{endpoints: endpoints, logger: logger, metrics: m}, nil
}

// Close closes all endpoint connections.
func (c *Client) Close() {
	for _, ep := range c.endpoints {
		ep.client.Close()
	}
}

// call tries each endpoint in priority order and stops at the first success.
// When every candidate fails, the joined failure is classified once so the
// caller sees a single error carrying any recognizable provider signature.
func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	var failures []error
	for _, ep := range c.endpoints {
		err := ep.client.CallContext(ctx, result, method, args...)
		c.metrics.RecordRPCCall(method, ep.url, err)
		if err == nil {
			return nil
		}
		c.logger.Warn("rpc call failed",
			zap.String("method", method),
			zap.String("endpoint", ep.url),
			zap.Error(err),
		)
		failures = append(failures, fmt.Errorf("%s: %w", ep.url, err))
		if ctx.Err() != nil {
			break
		}
	}
	return Classify(errors.Join(failures...))
}

// HeadHeight returns the current tip height of the source ledger.
func (c *Client) HeadHeight(ctx context.Context) (uint64, error) {
	var head hexutil.Uint64
	if err := c.call(ctx, &head, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(head), nil
}

// blockHeader is the subset of the block payload the pipeline reads.
type blockHeader struct {
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

// BlockTime returns the wall-clock unix time at which a height was produced.
func (c *Client) BlockTime(ctx context.Context, height uint64) (uint64, error) {
	var header *blockHeader
	if err := c.call(ctx, &header, "eth_getBlockByNumber", hexutil.EncodeUint64(height), false); err != nil {
		return 0, err
	}
	if header == nil {
		return 0, Classify(fmt.Errorf("block %d not found", height))
	}
	return uint64(header.Timestamp), nil
}

// GetLogs returns raw log records for the inclusive height range.
func (c *Client) GetLogs(
	ctx context.Context,
	addresses []common.Address,
	topics [][]common.Hash,
	fromHeight uint64,
	toHeight uint64,
) ([]types.Log, error) {
	filter := map[string]interface{}{
		"fromBlock": hexutil.EncodeUint64(fromHeight),
		"toBlock":   hexutil.EncodeUint64(toHeight),
		"address":   addresses,
	}
	if len(topics) > 0 {
		filter["topics"] = topics
	}

	var logs []types.Log
	if err := c.call(ctx, &logs, "eth_getLogs", filter); err != nil {
		return nil, err
	}
	return logs, nil
}
