package chain

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ERC-20 ABI定义（只包含用到的部分）
const erc20ABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": false, "name": "value", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	}
]`

var (
	parsedERC20ABI abi.ABI
	parseABIOnce   sync.Once

	// transferTopic Transfer(address,address,uint256) 事件签名
	transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

// ERC20ABI 获取解析后的ERC-20 ABI
func ERC20ABI() abi.ABI {
	parseABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse erc20 abi: %v", err))
		}
		parsedERC20ABI = parsed
	})
	return parsedERC20ABI
}

// TransferEvent 解码后的Transfer事件
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// DecodeTransferLog 将日志解码为Transfer事件，不是Transfer事件时返回false
func DecodeTransferLog(log *types.Log) (*TransferEvent, bool) {
	if len(log.Topics) != 3 || log.Topics[0] != transferTopic {
		return nil, false
	}

	return &TransferEvent{
		From:  common.BytesToAddress(log.Topics[1].Bytes()),
		To:    common.BytesToAddress(log.Topics[2].Bytes()),
		Value: new(big.Int).SetBytes(log.Data),
	}, true
}

// decimalsCache 每进程的decimals缓存，仅作为性能优化
type decimalsCache struct {
	mu     sync.RWMutex
	values map[string]int
}

func newDecimalsCache() *decimalsCache {
	return &decimalsCache{values: make(map[string]int)}
}

func (c *decimalsCache) key(chainId int64, token common.Address) string {
	return fmt.Sprintf("%d:%s", chainId, strings.ToLower(token.Hex()))
}

func (c *decimalsCache) get(chainId int64, token common.Address) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[c.key(chainId, token)]
	return v, ok
}

func (c *decimalsCache) put(chainId int64, token common.Address, decimals int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[c.key(chainId, token)] = decimals
}
