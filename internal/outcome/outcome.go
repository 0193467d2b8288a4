// Package outcome 定义每次调用唯一输出的结果信封，以及网关回执到信封的归一化。
// 无论哪条命令路径、哪类错误，进程恰好向标准输出写一行 JSON。
package outcome

import (
	"encoding/json"
	"fmt"
	"io"

	"hl-bridge/internal/book"
	"hl-bridge/internal/exchange"
)

// Failure 是统一的失败信封。
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Fail 构造失败信封。
func Fail(message string) Failure {
	return Failure{Success: false, Error: message}
}

// Failf 按格式构造失败信封。
func Failf(format string, args ...interface{}) Failure {
	return Fail(fmt.Sprintf(format, args...))
}

// OrderFilled 表示立即成交。
type OrderFilled struct {
	Success bool    `json:"success"`
	Filled  bool    `json:"filled"`
	OID     int64   `json:"oid"`
	AvgPx   float64 `json:"avgPx"`
	TotalSz float64 `json:"totalSz"`
}

// OrderResting 表示订单已挂入订单簿。
type OrderResting struct {
	Success bool  `json:"success"`
	Filled  bool  `json:"filled"`
	OID     int64 `json:"oid"`
}

// OpaqueStatus 表示请求成功但回执形态未识别，原样透传。
type OpaqueStatus struct {
	Success bool        `json:"success"`
	Status  interface{} `json:"status"`
}

// OpaqueResult 表示请求成功但没有任何 status 数据。
type OpaqueResult struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result"`
}

// Cancelled 表示撤单成功。
type Cancelled struct {
	Success bool `json:"success"`
}

// TriggerArmed 表示条件单已挂出等待触发。
type TriggerArmed struct {
	Success      bool    `json:"success"`
	OID          int64   `json:"oid"`
	TriggerType  string  `json:"triggerType"`
	TriggerPrice float64 `json:"triggerPrice"`
}

// Balance 是 balance 命令的结果。
type Balance struct {
	Success      bool    `json:"success"`
	AccountValue float64 `json:"accountValue"`
	Withdrawable float64 `json:"withdrawable"`
}

// PositionEntry 是 positions 命令里的单个仓位。
type PositionEntry struct {
	Symbol        string  `json:"symbol"`
	Size          float64 `json:"size"`
	EntryPx       float64 `json:"entryPx"`
	UnrealizedPnl float64 `json:"unrealizedPnl"`
	Leverage      float64 `json:"leverage"`
}

// Positions 是 positions 命令的结果。
type Positions struct {
	Success   bool            `json:"success"`
	Positions []PositionEntry `json:"positions"`
}

// OpenOrderEntry 是 open_orders 命令里的单个挂单。
type OpenOrderEntry struct {
	OID          int64   `json:"oid"`
	Coin         string  `json:"coin"`
	Side         string  `json:"side"`
	Size         float64 `json:"size"`
	Price        float64 `json:"price"`
	OrderType    string  `json:"orderType"`
	ReduceOnly   bool    `json:"reduceOnly"`
	TriggerPx    float64 `json:"triggerPx,omitempty"`
	TPSL         string  `json:"tpsl,omitempty"`
}

// OpenOrders 是 open_orders 命令的结果。
type OpenOrders struct {
	Success bool             `json:"success"`
	Orders  []OpenOrderEntry `json:"orders"`
	Count   int              `json:"count"`
}

// OrderBook 是 orderbook 命令的结果。
type OrderBook struct {
	Success bool `json:"success"`
	book.Analysis
}

// ClosedItem 记录 close_all 中单个仓位的平仓结果，失败不影响其余仓位。
type ClosedItem struct {
	Coin   string  `json:"coin"`
	Size   float64 `json:"size"`
	Result string  `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// CloseAll 是 close_all 命令的聚合结果。
type CloseAll struct {
	Success bool         `json:"success"`
	Closed  []ClosedItem `json:"closed"`
}

// CancelledOrder 记录 cancel_all 中成功撤销的一单。
type CancelledOrder struct {
	Coin string `json:"coin"`
	OID  int64  `json:"oid"`
}

// CancelFailure 记录 cancel_all 中失败的一单。
type CancelFailure struct {
	Coin  string `json:"coin"`
	OID   int64  `json:"oid"`
	Error string `json:"error"`
}

// CancelAll 是 cancel_all 命令的聚合结果。
type CancelAll struct {
	Success        bool             `json:"success"`
	Cancelled      []CancelledOrder `json:"cancelled"`
	CancelledCount int              `json:"cancelledCount"`
	Errors         []CancelFailure  `json:"errors"`
	ErrorCount     int              `json:"errorCount"`
}

// Normalize 把下单回执变体映射为信封，五种形态穷尽匹配。
func Normalize(res exchange.SubmitOutcome) interface{} {
	switch res.Kind {
	case exchange.SubmitError:
		return Fail(res.ErrorMessage)
	case exchange.SubmitFilled:
		return OrderFilled{
			Success: true,
			Filled:  true,
			OID:     res.OID,
			AvgPx:   res.AvgPrice,
			TotalSz: res.TotalSize,
		}
	case exchange.SubmitResting:
		return OrderResting{Success: true, Filled: false, OID: res.OID}
	case exchange.SubmitOpaqueStatus:
		return OpaqueStatus{Success: true, Status: res.Raw}
	default: // exchange.SubmitOpaqueResult
		return OpaqueResult{Success: true, Result: res.Raw}
	}
}

// NormalizeTrigger 把条件单回执映射为信封：挂单成功时带回触发参数。
func NormalizeTrigger(res exchange.SubmitOutcome, kind string, triggerPrice float64) interface{} {
	switch res.Kind {
	case exchange.SubmitError:
		return Fail(res.ErrorMessage)
	case exchange.SubmitFilled, exchange.SubmitResting:
		return TriggerArmed{
			Success:      true,
			OID:          res.OID,
			TriggerType:  kind,
			TriggerPrice: triggerPrice,
		}
	case exchange.SubmitOpaqueStatus:
		return OpaqueStatus{Success: true, Status: res.Raw}
	default:
		return OpaqueResult{Success: true, Result: res.Raw}
	}
}

// Emit 将信封编码为恰好一行 JSON。
func Emit(w io.Writer, envelope interface{}) error {
	return json.NewEncoder(w).Encode(envelope)
}
