package chain

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/blues/fbs/internal/config"
	"github.com/blues/fbs/internal/logger"
	"github.com/blues/fbs/internal/model"
	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Reader 链上只读访问接口，logic层通过该接口访问链
type Reader interface {
	// TransactionReceipt 获取交易回执
	TransactionReceipt(ctx context.Context, chainId int64, txHash common.Hash) (*types.Receipt, error)
	// TokenAddress 解析代币合约地址
	TokenAddress(chainId int64, currency model.Currency) (common.Address, error)
	// TokenDecimals 读取代币decimals
	TokenDecimals(ctx context.Context, chainId int64, currency model.Currency) (int, error)
	// TokenBalance 读取账户代币余额（最小单位）
	TokenBalance(ctx context.Context, chainId int64, currency model.Currency, account common.Address) (*big.Int, error)
}

// Client 多链RPC客户端，按链ID缓存连接
type Client struct {
	mu       sync.RWMutex
	clients  map[int64]*ethclient.Client
	registry *Registry
	retry    config.RetryConfig
	decimals *decimalsCache
}

// NewClient 创建多链客户端
func NewClient(registry *Registry, retry config.RetryConfig) *Client {
	return &Client{
		clients:  make(map[int64]*ethclient.Client),
		registry: registry,
		retry:    retry,
		decimals: newDecimalsCache(),
	}
}

// clientFor 获取链客户端，按节点列表顺序尝试连接
func (c *Client) clientFor(chainId int64) (*ethclient.Client, error) {
	c.mu.RLock()
	client, ok := c.clients[chainId]
	c.mu.RUnlock()
	if ok {
		return client, nil
	}

	urls, err := c.registry.ResolveRpcEndpoints(chainId)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[chainId]; ok {
		return client, nil
	}

	var dialErr error
	for _, url := range urls {
		client, err := ethclient.Dial(url)
		if err != nil {
			logger.Warn("Failed to dial rpc endpoint %s for chain %d: %v", url, chainId, err)
			dialErr = err
			continue
		}
		c.clients[chainId] = client
		return client, nil
	}

	return nil, fmt.Errorf("failed to connect to any rpc endpoint for chain %d: %w", chainId, dialErr)
}

// callTimeout 单次RPC调用超时
func (c *Client) callTimeout() time.Duration {
	if c.retry.TimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.retry.TimeoutSec) * time.Second
}

// isRateLimited 判断错误是否为RPC限流
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

// rateLimitBackOff 基础延迟+线性增长+随机抖动的退避策略
type rateLimitBackOff struct {
	base    time.Duration
	step    time.Duration
	attempt int
}

func (b *rateLimitBackOff) NextBackOff() time.Duration {
	delay := b.base + time.Duration(b.attempt)*b.step
	b.attempt++
	jitter := time.Duration(rand.Int63n(int64(b.base)/2 + 1))
	return delay + jitter
}

func (b *rateLimitBackOff) Reset() {
	b.attempt = 0
}

// withRateLimitRetry 只对限流错误重试，其它错误立即返回
func (c *Client) withRateLimitRetry(ctx context.Context, op string, fn func() error) error {
	maxAttempts := c.retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	policy := &rateLimitBackOff{
		base: time.Duration(c.retry.BaseDelayMs) * time.Millisecond,
		step: time.Duration(c.retry.StepMs) * time.Millisecond,
	}
	if policy.base <= 0 {
		policy.base = 500 * time.Millisecond
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxAttempts-1)), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !isRateLimited(err) {
			return backoff.Permanent(err)
		}
		logger.Warn("Rate limited on %s, retrying: %v", op, err)
		return err
	}, b)
}

// TransactionReceipt 获取交易回执
func (c *Client) TransactionReceipt(ctx context.Context, chainId int64, txHash common.Hash) (*types.Receipt, error) {
	client, err := c.clientFor(chainId)
	if err != nil {
		return nil, err
	}

	var receipt *types.Receipt
	err = c.withRateLimitRetry(ctx, "eth_getTransactionReceipt", func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout())
		defer cancel()
		var callErr error
		receipt, callErr = client.TransactionReceipt(callCtx, txHash)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// TokenAddress 解析代币合约地址
func (c *Client) TokenAddress(chainId int64, currency model.Currency) (common.Address, error) {
	return c.registry.ResolveTokenAddress(chainId, currency)
}

// TokenDecimals 读取代币decimals，进程内缓存
func (c *Client) TokenDecimals(ctx context.Context, chainId int64, currency model.Currency) (int, error) {
	token, err := c.registry.ResolveTokenAddress(chainId, currency)
	if err != nil {
		return 0, err
	}

	if decimals, ok := c.decimals.get(chainId, token); ok {
		return decimals, nil
	}

	result, err := c.callContract(ctx, chainId, token, "decimals")
	if err != nil {
		return 0, err
	}

	var decimals uint8
	if err := ERC20ABI().UnpackIntoInterface(&decimals, "decimals", result); err != nil {
		return 0, fmt.Errorf("failed to unpack decimals: %w", err)
	}

	c.decimals.put(chainId, token, int(decimals))
	return int(decimals), nil
}

// TokenBalance 读取账户代币余额
func (c *Client) TokenBalance(ctx context.Context, chainId int64, currency model.Currency, account common.Address) (*big.Int, error) {
	token, err := c.registry.ResolveTokenAddress(chainId, currency)
	if err != nil {
		return nil, err
	}

	result, err := c.callContract(ctx, chainId, token, "balanceOf", account)
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	if err := ERC20ABI().UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf: %w", err)
	}
	return balance, nil
}

// callContract 只读合约调用，带限流重试
func (c *Client) callContract(ctx context.Context, chainId int64, token common.Address, method string, args ...interface{}) ([]byte, error) {
	client, err := c.clientFor(chainId)
	if err != nil {
		return nil, err
	}

	input, err := ERC20ABI().Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &token, Data: input}

	var result []byte
	err = c.withRateLimitRetry(ctx, method, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout())
		defer cancel()
		var callErr error
		result, callErr = client.CallContract(callCtx, msg, nil)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Ping 检查链RPC可达性
func (c *Client) Ping(ctx context.Context, chainId int64) error {
	client, err := c.clientFor(chainId)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout())
	defer cancel()
	_, err = client.BlockNumber(callCtx)
	return err
}

// Close 关闭所有链连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, client := range c.clients {
		client.Close()
	}
	c.clients = make(map[int64]*ethclient.Client)
}
