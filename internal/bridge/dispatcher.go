// Package bridge 把命令令牌路由到对应管线，并保证每次调用恰好产出一个结果信封。
// 参数不足在本地裁决，不触碰网关；网关故障在命令边界兜住，映射为统一的失败信封。
package bridge

import (
	"context"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hl-bridge/internal/book"
	"hl-bridge/internal/config"
	"hl-bridge/internal/exchange"
	"hl-bridge/internal/execution"
	"hl-bridge/internal/outcome"
	"hl-bridge/internal/position"
)

// Gateway 是执行网关适配器的消费侧契约。
type Gateway interface {
	SubmitOrder(ctx context.Context, intent execution.OrderIntent) (exchange.SubmitOutcome, error)
	CancelOrder(ctx context.Context, coin string, oid int64) error
	FetchMid(ctx context.Context, coin string) (float64, error)
	FetchOrderBook(ctx context.Context, coin string, depth int) (exchange.OrderBookSnapshot, error)
	FetchOpenOrders(ctx context.Context) ([]exchange.OpenOrder, error)
}

// AccountSource 提供账户资金与非零仓位快照。
type AccountSource interface {
	FetchState(ctx context.Context) (position.AccountBalance, []position.Snapshot, error)
}

// closeAllParallelism 限制 close_all 扇出的并发度。
const closeAllParallelism = 4

// Dispatcher 在单次进程调用内分发一条命令，不跨调用持有任何状态。
type Dispatcher struct {
	gateway  Gateway
	accounts AccountSource
	creds    config.Credentials
	logger   *zap.Logger
}

// NewDispatcher 创建分发器。凭证在入口构造一次，之后不可变。
func NewDispatcher(gateway Gateway, accounts AccountSource, creds config.Credentials, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		gateway:  gateway,
		accounts: accounts,
		creds:    creds,
		logger:   logger,
	}
}

// Dispatch 路由一条命令并返回唯一的结果信封。
func (d *Dispatcher) Dispatch(ctx context.Context, args []string) interface{} {
	if len(args) == 0 {
		return outcome.Fail("No command provided")
	}

	cmd := strings.ToLower(args[0])
	rest := args[1:]

	d.logger.Debug("分发命令",
		zap.String("command", cmd),
		zap.Int("args", len(rest)),
		zap.Bool("agent_wallet", d.creds.AgentWallet),
	)

	switch cmd {
	case "balance":
		return d.balance(ctx)
	case "positions":
		return d.positions(ctx)
	case "orderbook":
		return d.orderBook(ctx, rest)
	case "order":
		return d.order(ctx, rest)
	case "cancel":
		return d.cancel(ctx, rest)
	case "trigger":
		return d.trigger(ctx, rest)
	case "close_all":
		return d.closeAll(ctx)
	case "open_orders":
		return d.openOrders(ctx)
	case "cancel_all":
		return d.cancelAll(ctx, rest)
	default:
		return outcome.Failf("Unknown command: %s", cmd)
	}
}

// requireSigner 在任何写入类网关调用之前检查签名材料。
func (d *Dispatcher) requireSigner() interface{} {
	if d.creds.PrivateKey == "" {
		return outcome.Fail("HL_PRIVATE_KEY not set")
	}
	return nil
}

func (d *Dispatcher) balance(ctx context.Context) interface{} {
	balance, _, err := d.accounts.FetchState(ctx)
	if err != nil {
		return outcome.Fail(err.Error())
	}
	return outcome.Balance{
		Success:      true,
		AccountValue: balance.AccountValue,
		Withdrawable: balance.Withdrawable,
	}
}

func (d *Dispatcher) positions(ctx context.Context) interface{} {
	_, snapshots, err := d.accounts.FetchState(ctx)
	if err != nil {
		return outcome.Fail(err.Error())
	}

	entries := make([]outcome.PositionEntry, 0, len(snapshots))
	for _, snap := range snapshots {
		entries = append(entries, outcome.PositionEntry{
			Symbol:        snap.Coin,
			Size:          snap.SignedSize,
			EntryPx:       snap.EntryPrice,
			UnrealizedPnl: snap.UnrealizedPnl,
			Leverage:      snap.Leverage,
		})
	}
	return outcome.Positions{Success: true, Positions: entries}
}

func (d *Dispatcher) orderBook(ctx context.Context, rest []string) interface{} {
	if len(rest) < 1 {
		return outcome.Fail("Usage: orderbook <coin> [depth]")
	}

	coin := strings.ToUpper(rest[0])
	depth := 10
	if len(rest) > 1 {
		parsed, err := strconv.Atoi(rest[1])
		if err != nil || parsed <= 0 {
			return outcome.Failf("invalid depth: %s", rest[1])
		}
		depth = parsed
	}

	snap, err := d.gateway.FetchOrderBook(ctx, coin, depth)
	if err != nil {
		return outcome.Fail(err.Error())
	}
	return outcome.OrderBook{Success: true, Analysis: book.Analyze(snap)}
}

func (d *Dispatcher) order(ctx context.Context, rest []string) interface{} {
	if len(rest) < 3 {
		return outcome.Fail("Usage: order <coin> <buy|sell> <size> [limit] [price]")
	}
	if env := d.requireSigner(); env != nil {
		return env
	}

	// 两种形式等价：order BTC buy 0.1 64000 与 order BTC buy 0.1 limit 64000。
	rawPrice := ""
	if len(rest) > 3 {
		if rest[3] == "limit" {
			if len(rest) > 4 {
				rawPrice = rest[4]
			}
		} else {
			rawPrice = rest[3]
		}
	}

	intent, err := execution.BuildIntent(ctx, d.gateway, execution.BuildInput{
		Coin:     strings.ToUpper(rest[0]),
		Side:     rest[1],
		RawSize:  rest[2],
		RawPrice: rawPrice,
	})
	if err != nil {
		return outcome.Fail(err.Error())
	}

	res, err := d.gateway.SubmitOrder(ctx, intent)
	if err != nil {
		return outcome.Fail(err.Error())
	}
	return outcome.Normalize(res)
}

func (d *Dispatcher) cancel(ctx context.Context, rest []string) interface{} {
	if len(rest) < 2 {
		return outcome.Fail("Usage: cancel <coin> <oid>")
	}
	if env := d.requireSigner(); env != nil {
		return env
	}

	oid, err := strconv.ParseInt(rest[1], 10, 64)
	if err != nil {
		return outcome.Failf("invalid oid: %s", rest[1])
	}

	if err := d.gateway.CancelOrder(ctx, strings.ToUpper(rest[0]), oid); err != nil {
		return outcome.Fail(err.Error())
	}
	return outcome.Cancelled{Success: true}
}

func (d *Dispatcher) trigger(ctx context.Context, rest []string) interface{} {
	if len(rest) < 5 {
		return outcome.Fail("Usage: trigger <coin> <buy|sell> <size> <sl|tp> <trigger_price>")
	}
	if env := d.requireSigner(); env != nil {
		return env
	}

	intent, err := execution.BuildTriggerIntent(strings.ToUpper(rest[0]), rest[1], rest[2], rest[3], rest[4])
	if err != nil {
		return outcome.Fail(err.Error())
	}

	res, err := d.gateway.SubmitOrder(ctx, intent)
	if err != nil {
		return outcome.Fail(err.Error())
	}
	return outcome.NormalizeTrigger(res, string(intent.Trigger.Kind), intent.Trigger.Price)
}

// closeAll 对每个非零仓位独立反向平仓：单个仓位失败不影响其余仓位，
// 所有结果聚齐后才输出。
func (d *Dispatcher) closeAll(ctx context.Context) interface{} {
	if env := d.requireSigner(); env != nil {
		return env
	}

	_, snapshots, err := d.accounts.FetchState(ctx)
	if err != nil {
		return outcome.Fail(err.Error())
	}

	closed := make([]outcome.ClosedItem, len(snapshots))

	var group errgroup.Group
	group.SetLimit(closeAllParallelism)

	for i, pos := range snapshots {
		group.Go(func() error {
			closed[i] = d.closePosition(ctx, pos)
			return nil
		})
	}
	_ = group.Wait()

	return outcome.CloseAll{Success: true, Closed: closed}
}

func (d *Dispatcher) closePosition(ctx context.Context, pos position.Snapshot) outcome.ClosedItem {
	side := execution.OrderSideSell
	if pos.SignedSize < 0 {
		side = execution.OrderSideBuy
	}
	size := math.Abs(pos.SignedSize)

	item := outcome.ClosedItem{Coin: pos.Coin, Size: size}

	intent, err := execution.MarketIntent(ctx, d.gateway, pos.Coin, side, size)
	if err != nil {
		item.Error = err.Error()
		return item
	}

	res, err := d.gateway.SubmitOrder(ctx, intent)
	switch {
	case err != nil:
		item.Error = err.Error()
	case res.Kind == exchange.SubmitError:
		item.Error = res.ErrorMessage
	default:
		item.Result = "ok"
	}
	return item
}

func (d *Dispatcher) openOrders(ctx context.Context) interface{} {
	orders, err := d.gateway.FetchOpenOrders(ctx)
	if err != nil {
		return outcome.Fail(err.Error())
	}

	entries := make([]outcome.OpenOrderEntry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, outcome.OpenOrderEntry{
			OID:        o.OID,
			Coin:       o.Coin,
			Side:       o.Side,
			Size:       o.Size,
			Price:      o.Price,
			OrderType:  o.OrderType,
			ReduceOnly: o.ReduceOnly,
			TriggerPx:  o.TriggerPrice,
			TPSL:       o.TPSL,
		})
	}
	return outcome.OpenOrders{Success: true, Orders: entries, Count: len(entries)}
}

func (d *Dispatcher) cancelAll(ctx context.Context, rest []string) interface{} {
	if env := d.requireSigner(); env != nil {
		return env
	}

	filter := ""
	if len(rest) > 0 {
		filter = strings.ToUpper(rest[0])
	}

	orders, err := d.gateway.FetchOpenOrders(ctx)
	if err != nil {
		return outcome.Fail(err.Error())
	}

	cancelled := make([]outcome.CancelledOrder, 0, len(orders))
	failures := make([]outcome.CancelFailure, 0)

	for _, o := range orders {
		if filter != "" && !strings.EqualFold(o.Coin, filter) {
			continue
		}
		if o.OID == 0 {
			continue
		}
		if err := d.gateway.CancelOrder(ctx, o.Coin, o.OID); err != nil {
			failures = append(failures, outcome.CancelFailure{Coin: o.Coin, OID: o.OID, Error: err.Error()})
			continue
		}
		cancelled = append(cancelled, outcome.CancelledOrder{Coin: o.Coin, OID: o.OID})
	}

	return outcome.CancelAll{
		Success:        true,
		Cancelled:      cancelled,
		CancelledCount: len(cancelled),
		Errors:         failures,
		ErrorCount:     len(failures),
	}
}
