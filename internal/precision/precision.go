package precision

import "math"

// sizeDecimals 记录各币种允许的数量小数位（来自 Hyperliquid 合约规格）。
var sizeDecimals = map[string]int{
	"BTC": 4, "ETH": 3, "SOL": 2, "XRP": 0, "BNB": 2, "DOGE": 0,
	"ADA": 0, "AVAX": 2, "DOT": 1, "LINK": 1, "LTC": 2, "BCH": 2,
	"MATIC": 0, "ARB": 0, "OP": 0, "SUI": 0, "APT": 1, "ATOM": 1,
	"UNI": 1, "NEAR": 0, "FIL": 1, "AAVE": 2, "INJ": 1, "TIA": 1,
	"SEI": 0, "FTM": 0, "MKR": 3, "TON": 1, "TRX": 0, "ETC": 1,
	"HYPE": 1, "MEGA": 0, "PEPE": 0, "WIF": 0, "BONK": 0, "TAO": 2,
}

// defaultSizeDecimals 为未收录币种的兜底精度。
const defaultSizeDecimals = 2

// SizeDecimalsFor 返回币种数量精度，未知币种默认2位。
func SizeDecimalsFor(coin string) int {
	if d, ok := sizeDecimals[coin]; ok {
		return d
	}
	return defaultSizeDecimals
}

// RoundSize 将数量按指定小数位四舍五入；小数位为0时结果为精确整数。
func RoundSize(size float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(size)
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(size*pow) / pow
}

// RoundPrice 按价格量级分档舍入：交易所的价格最小变动单位与名义价格正相关，
// 未经舍入的价格会被网关直接拒单。
func RoundPrice(price float64) float64 {
	switch {
	case price < 1:
		return roundTo(price, 5)
	case price < 10:
		return roundTo(price, 4)
	case price < 100:
		return roundTo(price, 3)
	case price < 1000:
		return roundTo(price, 2)
	default:
		return roundTo(price, 1)
	}
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
