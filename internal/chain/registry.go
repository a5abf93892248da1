package chain

import (
	"fmt"
	"strings"

	"github.com/blues/fbs/internal/config"
	"github.com/blues/fbs/internal/model"
	"github.com/ethereum/go-ethereum/common"
)

// ConfigError 链配置错误，永久性失败，不重试
type ConfigError struct {
	ChainId int64
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("chain %d: missing %s configuration", e.ChainId, e.Missing)
}

// publicRpcUrls 公共备用RPC节点，配置节点失败后按顺序使用
var publicRpcUrls = map[int64][]string{
	1:     {"https://eth.llamarpc.com", "https://rpc.ankr.com/eth"},
	137:   {"https://polygon-rpc.com", "https://rpc.ankr.com/polygon"},
	43114: {"https://api.avax.network/ext/bc/C/rpc", "https://rpc.ankr.com/avalanche"},
}

// Registry 按链ID解析RPC节点和代币合约地址
type Registry struct {
	cfg *config.Config
}

// NewRegistry 创建链注册表
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{cfg: cfg}
}

// ResolveRpcEndpoints 解析链的RPC节点列表，配置节点在前，公共节点在后
func (r *Registry) ResolveRpcEndpoints(chainId int64) ([]string, error) {
	var urls []string
	if chainCfg, ok := r.cfg.FindChain(chainId); ok {
		urls = append(urls, chainCfg.RpcUrls...)
	}
	urls = append(urls, publicRpcUrls[chainId]...)

	if len(urls) == 0 {
		return nil, &ConfigError{ChainId: chainId, Missing: "rpc endpoint"}
	}
	return urls, nil
}

// ResolveTokenAddress 解析链上代币合约地址
func (r *Registry) ResolveTokenAddress(chainId int64, currency model.Currency) (common.Address, error) {
	chainCfg, ok := r.cfg.FindChain(chainId)
	if !ok {
		return common.Address{}, &ConfigError{ChainId: chainId, Missing: "token address"}
	}

	for symbol, addr := range chainCfg.Tokens {
		if strings.EqualFold(symbol, string(currency)) && common.IsHexAddress(addr) {
			return common.HexToAddress(addr), nil
		}
	}

	return common.Address{}, &ConfigError{ChainId: chainId, Missing: "token address"}
}
