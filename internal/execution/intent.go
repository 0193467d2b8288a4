package execution

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"hl-bridge/internal/precision"
)

// QuoteSource 提供币种当前中间价，由市场数据适配器实现。
type QuoteSource interface {
	FetchMid(ctx context.Context, coin string) (float64, error)
}

// BuildInput 是 order 命令的原始字段。
type BuildInput struct {
	Coin     string
	Side     string
	RawSize  string
	RawPrice string
}

// ParseSide 解析方向令牌，大小写不敏感；非法值直接报错而不是默认成卖出。
func ParseSide(token string) (OrderSide, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "buy":
		return OrderSideBuy, nil
	case "sell":
		return OrderSideSell, nil
	default:
		return "", fmt.Errorf("invalid side: %s (expected buy or sell)", token)
	}
}

// BuildIntent 把命令的原始字段归一化为一条下单指令。
// 价格解析分三个互斥分支：市价（IOC 合成）、limit_open（远离盘口的测试挂单）、显式限价。
func BuildIntent(ctx context.Context, quotes QuoteSource, in BuildInput) (OrderIntent, error) {
	side, err := ParseSide(in.Side)
	if err != nil {
		return OrderIntent{}, err
	}

	size, err := parseSize(in.Coin, in.RawSize)
	if err != nil {
		return OrderIntent{}, err
	}

	raw := strings.TrimSpace(in.RawPrice)
	switch raw {
	case "", "market":
		return MarketIntent(ctx, quotes, in.Coin, side, size)
	case "limit_open":
		mid, err := quotes.FetchMid(ctx, in.Coin)
		if err != nil {
			return OrderIntent{}, err
		}
		// 刻意偏离盘口 5%，让订单保持挂单状态不被吃掉。
		price := math.Round(mid * 0.95)
		if side == OrderSideSell {
			price = math.Round(mid * 1.05)
		}
		return OrderIntent{
			Coin:    in.Coin,
			Side:    side,
			Size:    size,
			Price:   price,
			Variant: VariantGTC,
		}, nil
	default:
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return OrderIntent{}, fmt.Errorf("invalid price: %s", in.RawPrice)
		}
		return OrderIntent{
			Coin:    in.Coin,
			Side:    side,
			Size:    size,
			Price:   precision.RoundPrice(price),
			Variant: VariantGTC,
		}, nil
	}
}

// MarketIntent 构造合成市价单：在中间价上加减 0.1% 保证吃穿盘口，配合 IOC 立即成交。
// 中间价为 0（未收录币种）时按原样得到零价格指令，由网关回执暴露问题，这里不做校验。
func MarketIntent(ctx context.Context, quotes QuoteSource, coin string, side OrderSide, size float64) (OrderIntent, error) {
	mid, err := quotes.FetchMid(ctx, coin)
	if err != nil {
		return OrderIntent{}, err
	}

	price := math.Round(mid * 1.001)
	if side == OrderSideSell {
		price = math.Round(mid * 0.999)
	}

	return OrderIntent{
		Coin:    coin,
		Side:    side,
		Size:    precision.RoundSize(size, precision.SizeDecimalsFor(coin)),
		Price:   price,
		Variant: VariantIOC,
	}, nil
}

// BuildTriggerIntent 构造条件单指令：reduceOnly 恒为 true，触发后按市价执行。
func BuildTriggerIntent(coin, rawSide, rawSize, rawKind, rawTriggerPrice string) (OrderIntent, error) {
	side, err := ParseSide(rawSide)
	if err != nil {
		return OrderIntent{}, err
	}

	size, err := parseSize(coin, rawSize)
	if err != nil {
		return OrderIntent{}, err
	}

	kind, err := parseTriggerKind(rawKind)
	if err != nil {
		return OrderIntent{}, err
	}

	triggerPrice, err := strconv.ParseFloat(strings.TrimSpace(rawTriggerPrice), 64)
	if err != nil {
		return OrderIntent{}, fmt.Errorf("invalid trigger price: %s", rawTriggerPrice)
	}

	spec := ResolveTrigger(side, kind, precision.RoundPrice(triggerPrice))

	return OrderIntent{
		Coin:       coin,
		Side:       side,
		Size:       size,
		Price:      spec.Price,
		Variant:    VariantTrigger,
		ReduceOnly: true,
		Trigger:    &spec,
	}, nil
}

// ResolveTrigger 由平仓方向与触发类型推导触发比较方向。
// 调用方传入的是平仓侧而非持仓侧：买入平空仓、卖出平多仓。
// 止损在买入平空时向上触发；止盈在卖出平多时向上触发。
func ResolveTrigger(closeSide OrderSide, kind TriggerKind, price float64) TriggerSpec {
	var above bool
	if kind == TriggerStopLoss {
		above = closeSide == OrderSideBuy
	} else {
		above = closeSide == OrderSideSell
	}

	return TriggerSpec{
		Price:           price,
		Kind:            kind,
		TriggerAbove:    above,
		ExecuteAsMarket: true,
	}
}

func parseSize(coin, raw string) (float64, error) {
	size, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %s", raw)
	}
	return precision.RoundSize(size, precision.SizeDecimalsFor(coin)), nil
}

func parseTriggerKind(raw string) (TriggerKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sl":
		return TriggerStopLoss, nil
	case "tp":
		return TriggerTakeProfit, nil
	default:
		return "", fmt.Errorf("invalid trigger type: %s (expected sl or tp)", raw)
	}
}
