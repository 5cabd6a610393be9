// Package subgraph queries a blocks subgraph over GraphQL.
package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/infra/rpc"
)

// DefaultPageSize is the largest page the indexing service returns.
const DefaultPageSize = 1000

const graphBase = "https://api.thegraph.com/subgraphs/name/"

// DefaultEndpoints lists the public blocks subgraph per network.
var DefaultEndpoints = map[domain.Network]string{
	domain.NetworkEthereum: graphBase + "blocklytics/ethereum-blocks",
	domain.NetworkPolygon:  graphBase + "sameepsi/maticblocks",
	domain.NetworkArbitrum: graphBase + "ianlapham/arbitrum-one-blocks",
	domain.NetworkFantom:   graphBase + "matthewlilley/fantom-blocks",
}

const blocksQuery = `query blocks($first: Int!, $after: BigInt!, $before: BigInt!) {
  blocks(first: $first, orderBy: timestamp, orderDirection: asc, where: {timestamp_gt: $after, timestamp_lt: $before}) {
    number
    timestamp
  }
}`

const blockQuery = `query block($number: BigInt!) {
  blocks(first: 1, where: {number: $number}) {
    number
    timestamp
  }
}`

var errGraphQL = errors.New("graphql error")

// Client implements chain.BlockSource against one subgraph endpoint.
type Client struct {
	network domain.Network
	fetcher *rpc.Fetcher
}

// NewClient wraps a fetcher whose provider points at the subgraph endpoint.
func NewClient(network domain.Network, fetcher *rpc.Fetcher) *Client {
	return &Client{network: network, fetcher: fetcher}
}

func (c *Client) Network() domain.Network {
	return c.network
}

type graphRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphError struct {
	Message string `json:"message"`
}

type blocksResponse struct {
	Data *struct {
		Blocks []blockRow `json:"blocks"`
	} `json:"data"`
	Errors []graphError `json:"errors"`
}

type blockRow struct {
	Number    bigInt `json:"number"`
	Timestamp bigInt `json:"timestamp"`
}

// bigInt decodes GraphQL BigInt values, which arrive as strings.
type bigInt int64

func (b *bigInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse bigint %s: %w", data, err)
	}
	*b = bigInt(v)
	return nil
}

// BlocksBetween returns up to first blocks with after < timestamp < before.
// GraphQL level errors and missing data count as malformed responses and are
// retried by the fetcher.
func (c *Client) BlocksBetween(
	ctx context.Context,
	after, before int64,
	first int,
) ([]domain.BlockStamp, error) {
	if first <= 0 {
		first = DefaultPageSize
	}

	op := rpc.Operation{
		Name: "blocks",
		Body: graphRequest{
			Query: blocksQuery,
			Variables: map[string]any{
				"first":  first,
				"after":  strconv.FormatInt(after, 10),
				"before": strconv.FormatInt(before, 10),
			},
		},
	}

	blocks, err := c.query(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("fetch %s blocks (%d, %d): %w", c.network, after, before, err)
	}
	return blocks, nil
}

// BlockByNumber returns one block by number.
func (c *Client) BlockByNumber(ctx context.Context, number int64) (domain.BlockStamp, bool, error) {
	op := rpc.Operation{
		Name: "block",
		Body: graphRequest{
			Query:     blockQuery,
			Variables: map[string]any{"number": strconv.FormatInt(number, 10)},
		},
	}

	blocks, err := c.query(ctx, op)
	if err != nil {
		return domain.BlockStamp{}, false, fmt.Errorf("fetch %s block %d: %w", c.network, number, err)
	}
	if len(blocks) == 0 {
		return domain.BlockStamp{}, false, nil
	}
	return blocks[0], true, nil
}

func (c *Client) query(ctx context.Context, op rpc.Operation) ([]domain.BlockStamp, error) {
	var resp blocksResponse
	err := c.fetcher.Fetch(ctx, op, func(body []byte) error {
		resp = blocksResponse{}
		if err := json.Unmarshal(body, &resp); err != nil {
			return err
		}
		if len(resp.Errors) > 0 {
			return fmt.Errorf("%w: %s", errGraphQL, resp.Errors[0].Message)
		}
		if resp.Data == nil {
			return fmt.Errorf("%w: response has no data", errGraphQL)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.BlockStamp, 0, len(resp.Data.Blocks))
	for _, row := range resp.Data.Blocks {
		out = append(out, domain.BlockStamp{
			Number:    int64(row.Number),
			Timestamp: int64(row.Timestamp),
		})
	}
	return out, nil
}
