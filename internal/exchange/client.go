package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"hl-bridge/internal/config"
	"hl-bridge/internal/execution"
)

// Client 封装 Hyperliquid 网关：下单、撤单、行情与账户查询。
// 只读调用带指数退避重试；写入调用（下单/撤单）失败一律一次性上抛。
type Client struct {
	cfg      config.ExchangeConfig
	logger   *zap.Logger
	exchange *ccxt.Hyperliquid

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewClient 构造 Hyperliquid 客户端。凭证允许为空：
// 只读命令只需要账户地址，签名材料缺失在下单路径上才会被拒绝。
func NewClient(cfg config.ExchangeConfig, creds config.Credentials, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
	}
	if creds.AccountAddress != "" {
		userConfig["walletAddress"] = creds.AccountAddress
	}
	if creds.PrivateKey != "" {
		userConfig["privateKey"] = creds.PrivateKey
	}

	ex := ccxt.NewHyperliquid(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	return &Client{
		cfg:      cfg,
		logger:   logger,
		exchange: ex,
	}
}

// Raw 返回底层 ccxt 客户端，供账户快照层复用。
func (c *Client) Raw() *ccxt.Hyperliquid {
	return c.exchange
}

// MarketSymbol 把币种符号映射为 ccxt 市场符号，如 BTC → BTC/USDC:USDC。
func (c *Client) MarketSymbol(coin string) string {
	quote := c.cfg.Quote
	if quote == "" {
		quote = "USDC"
	}
	return fmt.Sprintf("%s/%s:%s", coin, quote, quote)
}

// SubmitOrder 提交一条归一化后的下单指令，并在边界处解码回执。
func (c *Client) SubmitOrder(ctx context.Context, intent execution.OrderIntent) (SubmitOutcome, error) {
	if err := ctx.Err(); err != nil {
		return SubmitOutcome{}, err
	}
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return SubmitOutcome{}, err
	}

	symbol := c.MarketSymbol(intent.Coin)
	params := map[string]interface{}{}
	if intent.ReduceOnly {
		params["reduceOnly"] = true
	}

	var order ccxt.Order
	var err error

	switch intent.Variant {
	case execution.VariantIOC, execution.VariantGTC:
		params["timeInForce"] = string(intent.Variant)
		order, err = c.exchange.CreateLimitOrder(
			symbol,
			string(intent.Side),
			intent.Size,
			intent.Price,
			ccxt.WithCreateLimitOrderParams(params),
		)
	case execution.VariantTrigger:
		spec := intent.Trigger
		if spec == nil {
			return SubmitOutcome{}, errors.New("exchange: 触发单缺少 TriggerSpec")
		}
		if spec.Kind == execution.TriggerStopLoss {
			params["stopLossPrice"] = spec.Price
		} else {
			params["takeProfitPrice"] = spec.Price
		}
		orderType := "limit"
		if spec.ExecuteAsMarket {
			orderType = "market"
		}
		order, err = c.exchange.CreateOrder(
			symbol,
			orderType,
			string(intent.Side),
			intent.Size,
			ccxt.WithCreateOrderPrice(intent.Price),
			ccxt.WithCreateOrderParams(params),
		)
	default:
		return SubmitOutcome{}, fmt.Errorf("exchange: 不支持的订单变体 %s", intent.Variant)
	}

	if err != nil {
		return SubmitOutcome{}, err
	}

	c.logger.Debug("订单已提交",
		zap.String("coin", intent.Coin),
		zap.String("side", string(intent.Side)),
		zap.Float64("size", intent.Size),
		zap.Float64("price", intent.Price),
		zap.String("variant", string(intent.Variant)),
	)

	return DecodeSubmit(order.Info), nil
}

// CancelOrder 按订单号撤单。
func (c *Client) CancelOrder(ctx context.Context, coin string, oid int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return err
	}

	_, err := c.exchange.CancelOrder(
		strconv.FormatInt(oid, 10),
		ccxt.WithCancelOrderSymbol(c.MarketSymbol(coin)),
	)
	return err
}

// FetchMid 返回币种当前中间价；取不到买卖价时退回最新价，仍为空则返回 0，
// 零值由上游按原样传播。
func (c *Client) FetchMid(ctx context.Context, coin string) (float64, error) {
	var ticker ccxt.Ticker
	err := c.callWithRetry(ctx, "fetch_ticker", func() error {
		if err := c.ensureMarketsLoaded(ctx); err != nil {
			return err
		}
		result, err := c.exchange.FetchTicker(c.MarketSymbol(coin))
		if err != nil {
			return err
		}
		ticker = result
		return nil
	})
	if err != nil {
		return 0, err
	}

	bid := derefFloat(ticker.Bid)
	ask := derefFloat(ticker.Ask)
	if bid > 0 && ask > 0 {
		return (bid + ask) / 2, nil
	}
	return derefFloat(ticker.Last), nil
}

// FetchOrderBook 获取指定深度的订单簿快照。
func (c *Client) FetchOrderBook(ctx context.Context, coin string, depth int) (OrderBookSnapshot, error) {
	if depth <= 0 {
		depth = 10
	}

	var raw ccxt.OrderBook
	err := c.callWithRetry(ctx, "fetch_order_book", func() error {
		if err := c.ensureMarketsLoaded(ctx); err != nil {
			return err
		}
		orderBook, err := c.exchange.FetchOrderBook(
			c.MarketSymbol(coin),
			ccxt.WithFetchOrderBookLimit(int64(depth)),
		)
		if err != nil {
			return err
		}
		raw = orderBook
		return nil
	})
	if err != nil {
		return OrderBookSnapshot{}, err
	}

	return convertOrderBook(coin, raw, depth), nil
}

// FetchOpenOrders 拉取账户全部挂单。
func (c *Client) FetchOpenOrders(ctx context.Context) ([]OpenOrder, error) {
	var raw []ccxt.Order
	err := c.callWithRetry(ctx, "fetch_open_orders", func() error {
		if err := c.ensureMarketsLoaded(ctx); err != nil {
			return err
		}
		orders, err := c.exchange.FetchOpenOrders()
		if err != nil {
			return err
		}
		raw = orders
		return nil
	})
	if err != nil {
		return nil, err
	}

	open := make([]OpenOrder, 0, len(raw))
	for _, order := range raw {
		open = append(open, decodeOpenOrder(order.Info))
	}
	return open, nil
}

func (c *Client) ensureMarketsLoaded(ctx context.Context) error {
	if c.marketsLoaded {
		return nil
	}

	c.marketsMu.Lock()
	defer c.marketsMu.Unlock()

	if c.marketsLoaded {
		return nil
	}

	loadErr := c.callWithRetry(ctx, "load_markets", func() error {
		_, err := c.exchange.LoadMarkets()
		return err
	})
	if loadErr != nil {
		return loadErr
	}

	c.marketsLoaded = true
	return nil
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	maxAttempts := c.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn()
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("网关调用重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		normalizedErr, retry := c.classifyError(err)

		if errors.Is(normalizedErr, ErrMaintenance) {
			c.logger.Warn("交易所维护中",
				zap.String("operation", operation),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		if !retry || attempt >= maxAttempts {
			c.logger.Error("网关调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Warn("网关调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(normalizedErr),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func (c *Client) classifyError(err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		if ccxtErr.Type == ccxt.OnMaintenanceErrType {
			message := strings.TrimSpace(ccxtErr.Message)
			if message == "" {
				message = "exchange under maintenance"
			}
			return fmt.Errorf("%w: %s", ErrMaintenance, message), false
		}
		return err, IsRetryable(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}

	return err, false
}

func convertOrderBook(coin string, ob ccxt.OrderBook, depth int) OrderBookSnapshot {
	bids := make([]OrderBookLevel, 0, depth)
	for _, level := range ob.Bids {
		if len(level) < 2 {
			continue
		}
		if len(bids) >= depth {
			break
		}
		bids = append(bids, OrderBookLevel{Price: level[0], Size: level[1]})
	}

	asks := make([]OrderBookLevel, 0, depth)
	for _, level := range ob.Asks {
		if len(level) < 2 {
			continue
		}
		if len(asks) >= depth {
			break
		}
		asks = append(asks, OrderBookLevel{Price: level[0], Size: level[1]})
	}

	var ts time.Time
	if ob.Timestamp != nil {
		ts = time.UnixMilli(*ob.Timestamp).UTC()
	} else {
		ts = time.Now().UTC()
	}

	return OrderBookSnapshot{
		Coin:      coin,
		Bids:      bids,
		Asks:      asks,
		Timestamp: ts,
	}
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
