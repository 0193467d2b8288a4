package position

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"
)

type balanceClient interface {
	FetchBalance(params ...interface{}) (ccxt.Balances, error)
	FetchPositions(options ...ccxt.FetchPositionsOptions) ([]ccxt.Position, error)
}

// AccountBalance 描述账户权益与可提余额。
type AccountBalance struct {
	AccountValue float64
	Withdrawable float64
	Timestamp    time.Time
}

// Snapshot 是单个仓位的只读投影，SignedSize 带方向（负数为空头）。
// 只保留非零仓位。
type Snapshot struct {
	Coin          string
	SignedSize    float64
	EntryPrice    float64
	UnrealizedPnl float64
	Leverage      float64
}

// Manager 负责拉取账户资金与仓位状态。
type Manager struct {
	client balanceClient
	logger *zap.Logger
}

// NewManager 创建仓位管理器。
func NewManager(client balanceClient, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		client: client,
		logger: logger,
	}
}

// FetchState 获取账户余额与全部非零仓位。
func (m *Manager) FetchState(ctx context.Context) (AccountBalance, []Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return AccountBalance{}, nil, err
	}

	var balance AccountBalance
	balance.Timestamp = time.Now().UTC()

	balances, err := m.client.FetchBalance()
	if err != nil {
		return balance, nil, fmt.Errorf("position: 获取账户余额失败: %w", err)
	}

	if balances.Info != nil {
		if summary, ok := balances.Info["marginSummary"].(map[string]interface{}); ok {
			balance.AccountValue = parseNumeric(summary["accountValue"])
		}
		balance.Withdrawable = parseNumeric(balances.Info["withdrawable"])
	}
	if balance.AccountValue == 0 && balances.Total != nil {
		for _, code := range []string{"USDC", "USD", "USDT"} {
			if total, ok := balances.Total[code]; ok && total != nil && *total > 0 {
				balance.AccountValue = *total
				break
			}
		}
	}

	rawPositions, err := m.client.FetchPositions()
	if err != nil {
		return balance, nil, fmt.Errorf("position: 获取持仓失败: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(rawPositions))
	for _, rawPos := range rawPositions {
		snap := convertPosition(rawPos)
		if snap.SignedSize == 0 {
			continue
		}
		snapshots = append(snapshots, snap)
	}

	m.logger.Debug("账户状态已拉取",
		zap.Float64("account_value", balance.AccountValue),
		zap.Int("open_positions", len(snapshots)),
	)

	return balance, snapshots, nil
}

func convertPosition(rawPos ccxt.Position) Snapshot {
	snap := Snapshot{
		Coin:          coinFromSymbol(derefString(rawPos.Symbol)),
		EntryPrice:    derefFloat(rawPos.EntryPrice),
		UnrealizedPnl: derefFloat(rawPos.UnrealizedPnl),
		Leverage:      derefFloat(rawPos.Leverage),
	}

	size := derefFloat(rawPos.Contracts)
	if strings.EqualFold(derefString(rawPos.Side), "short") {
		size = -size
	}
	snap.SignedSize = size

	// 优先使用原始 szi：带符号仓位数量只有原始载荷里是权威的。
	if rawPos.Info != nil {
		if info, ok := rawPos.Info["position"].(map[string]interface{}); ok {
			if szi := parseNumeric(info["szi"]); szi != 0 {
				snap.SignedSize = szi
			}
			if coin, ok := info["coin"].(string); ok && coin != "" {
				snap.Coin = coin
			}
			if snap.EntryPrice == 0 {
				snap.EntryPrice = parseNumeric(info["entryPx"])
			}
			if snap.UnrealizedPnl == 0 {
				snap.UnrealizedPnl = parseNumeric(info["unrealizedPnl"])
			}
			if lev, ok := info["leverage"].(map[string]interface{}); ok {
				if v := parseNumeric(lev["value"]); v > 0 {
					snap.Leverage = v
				}
			}
		}
	}

	return snap
}

// coinFromSymbol 把 ccxt 市场符号还原为币种，如 BTC/USDC:USDC → BTC。
func coinFromSymbol(symbol string) string {
	if idx := strings.IndexByte(symbol, '/'); idx > 0 {
		return symbol[:idx]
	}
	return symbol
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func parseNumeric(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case *float64:
		if v != nil {
			return *v
		}
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return 0
}
