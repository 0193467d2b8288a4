package exchange

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DecodeSubmit 将网关返回的原始回执（Hyperliquid statuses 单元素）解码为带标签的变体。
// 解码只在这里发生一次，之后所有分支判断都基于 Kind。
func DecodeSubmit(info map[string]interface{}) SubmitOutcome {
	if len(info) == 0 {
		return SubmitOutcome{Kind: SubmitOpaqueResult, Raw: info}
	}

	if msg := asString(info["error"]); msg != "" {
		return SubmitOutcome{Kind: SubmitError, ErrorMessage: msg, Raw: info}
	}

	if filled, ok := info["filled"].(map[string]interface{}); ok {
		return SubmitOutcome{
			Kind:      SubmitFilled,
			OID:       int64(asNumber(filled["oid"])),
			AvgPrice:  asNumber(filled["avgPx"]),
			TotalSize: asNumber(filled["totalSz"]),
			Raw:       info,
		}
	}

	if resting, ok := info["resting"].(map[string]interface{}); ok {
		return SubmitOutcome{
			Kind: SubmitResting,
			OID:  int64(asNumber(resting["oid"])),
			Raw:  info,
		}
	}

	return SubmitOutcome{Kind: SubmitOpaqueStatus, Raw: info}
}

func decodeOpenOrder(info map[string]interface{}) OpenOrder {
	side := "sell"
	if strings.EqualFold(asString(info["side"]), "b") {
		side = "buy"
	}

	return OpenOrder{
		OID:          int64(asNumber(info["oid"])),
		Coin:         asString(info["coin"]),
		Side:         side,
		Size:         asNumber(info["sz"]),
		Price:        asNumber(info["limitPx"]),
		OrderType:    asString(info["orderType"]),
		ReduceOnly:   asBool(info["reduceOnly"]),
		TriggerPrice: asNumber(info["triggerPx"]),
		TPSL:         asString(info["tpsl"]),
	}
}

func asNumber(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}

func asString(value interface{}) string {
	s, _ := value.(string)
	return s
}

func asBool(value interface{}) bool {
	b, _ := value.(bool)
	return b
}
