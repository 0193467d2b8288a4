package exchange

import "time"

// OrderBookLevel 表示盘口档位。
type OrderBookLevel struct {
	Price float64
	Size  float64
}

// OrderBookSnapshot 为订单簿快照。
type OrderBookSnapshot struct {
	Coin      string
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
	Timestamp time.Time
}

// OpenOrder 是交易所当前挂单的只读投影。
type OpenOrder struct {
	OID          int64
	Coin         string
	Side         string
	Size         float64
	Price        float64
	OrderType    string
	ReduceOnly   bool
	TriggerPrice float64
	TPSL         string
}

// SubmitKind 标识一次下单回执的归一化形态。
type SubmitKind int

const (
	// SubmitError 表示网关逐单返回的拒单。
	SubmitError SubmitKind = iota
	// SubmitFilled 表示立即成交。
	SubmitFilled
	// SubmitResting 表示订单已挂入订单簿。
	SubmitResting
	// SubmitOpaqueStatus 表示请求成功但回执形态未被识别。
	SubmitOpaqueStatus
	// SubmitOpaqueResult 表示请求成功但没有任何 status 数据，兜底透传。
	SubmitOpaqueResult
)

// SubmitOutcome 是在适配器边界一次性解码出的下单回执变体，
// 上层结果归一化对 Kind 做穷尽匹配。
type SubmitOutcome struct {
	Kind         SubmitKind
	ErrorMessage string
	OID          int64
	AvgPrice     float64
	TotalSize    float64
	Raw          map[string]interface{}
}
