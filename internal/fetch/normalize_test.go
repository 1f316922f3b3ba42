package fetch

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"tipscope/internal/model"
)

func transferLog(token common.Address, sender common.Address, amount *big.Int, height uint64, tx string) types.Log {
	topic, _ := ParseTopic(TransferTopic)
	return types.Log{
		Address: token,
		Topics: []common.Hash{
			topic,
			common.BytesToHash(sender.Bytes()),
			common.BytesToHash(common.HexToAddress("0xfeed").Bytes()),
		},
		Data:        common.LeftPadBytes(amount.Bytes(), 32),
		BlockNumber: height,
		TxHash:      common.HexToHash(tx),
	}
}

func TestNormalize(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	sender := common.HexToAddress("0xAbCd000000000000000000000000000000000001")
	assets := map[common.Address]model.AssetKind{token: "GLM"}

	amount := new(big.Int)
	amount.SetString("123456789012345678901234567890", 10)

	logs := []types.Log{
		transferLog(token, sender, amount, 42, "0xa1"),
		transferLog(other, sender, big.NewInt(5), 43, "0xa2"), // unknown token
		{Address: token, BlockNumber: 44},                     // malformed, no topics
	}

	events := Normalize(logs, assets)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev := events[0]
	if ev.Sender != "0xabcd000000000000000000000000000000000001" {
		t.Fatalf("sender not lowercased: %s", ev.Sender)
	}
	if ev.Amount.Cmp(amount) != 0 {
		t.Fatalf("amount mismatch: %s != %s", ev.Amount, amount)
	}
	if ev.BlockHeight != 42 || ev.Asset != "GLM" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Timestamp != 0 {
		t.Fatalf("timestamp must start unresolved")
	}
}

func TestNormalizeSkipsRemoved(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sender := common.HexToAddress("0x3333333333333333333333333333333333333333")
	assets := map[common.Address]model.AssetKind{token: "GLM"}

	log := transferLog(token, sender, big.NewInt(1), 10, "0xb1")
	log.Removed = true

	if events := Normalize([]types.Log{log}, assets); len(events) != 0 {
		t.Fatalf("removed logs must be dropped, got %d events", len(events))
	}
}
