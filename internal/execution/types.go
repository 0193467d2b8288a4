package execution

// OrderSide 表示下单方向。
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderVariant 表示委托的时效语义。
type OrderVariant string

const (
	// VariantIOC 立即成交剩余撤销，用于合成市价单。
	VariantIOC OrderVariant = "ioc"
	// VariantGTC 挂单直至成交或撤销。
	VariantGTC OrderVariant = "gtc"
	// VariantTrigger 条件触发单，触发后按 TriggerSpec 执行。
	VariantTrigger OrderVariant = "trigger"
)

// TriggerKind 区分止损与止盈。
type TriggerKind string

const (
	TriggerStopLoss   TriggerKind = "sl"
	TriggerTakeProfit TriggerKind = "tp"
)

// TriggerSpec 描述条件单的触发参数。
// TriggerAbove 的推导必须保持原样：方向搞反不会产生保护单，而是悄悄放大仓位。
type TriggerSpec struct {
	Price           float64
	Kind            TriggerKind
	TriggerAbove    bool
	ExecuteAsMarket bool
}

// OrderIntent 是一条完全归一化后的下单指令，
// 构造后恰好被执行网关消费一次，不跨调用持有。
type OrderIntent struct {
	Coin       string
	Side       OrderSide
	Size       float64
	Price      float64
	Variant    OrderVariant
	ReduceOnly bool
	Trigger    *TriggerSpec
}
