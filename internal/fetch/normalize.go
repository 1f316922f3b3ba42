package fetch

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"tipscope/internal/model"
)

// TransferTopic is the topic0 signature of Transfer(address,address,uint256).
const TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// Normalize converts raw transfer logs into Events. Logs from addresses
// outside the asset map, removed logs, and logs without both indexed
// parties are dropped. Timestamps start unresolved (zero).
func Normalize(logs []types.Log, assets map[common.Address]model.AssetKind) []model.Event {
	events := make([]model.Event, 0, len(logs))
	for _, log := range logs {
		if log.Removed || len(log.Topics) < 3 {
			continue
		}
		asset, ok := assets[log.Address]
		if !ok {
			continue
		}

		sender := common.BytesToAddress(log.Topics[1].Bytes())
		events = append(events, model.Event{
			Sender:      strings.ToLower(sender.Hex()),
			Amount:      new(big.Int).SetBytes(log.Data),
			BlockHeight: log.BlockNumber,
			Timestamp:   0,
			TxRef:       log.TxHash.Hex(),
			Asset:       asset,
		})
	}
	return events
}
