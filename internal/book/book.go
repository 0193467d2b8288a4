package book

import (
	"math"

	"hl-bridge/internal/exchange"
)

// Level 是输出用的盘口档位。
type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Analysis 汇总一侧盘口快照的衍生指标。
// spread 与 imbalance 在分母为 0 时一律为 0。
type Analysis struct {
	Coin         string  `json:"coin"`
	Bids         []Level `json:"bids"`
	Asks         []Level `json:"asks"`
	BestBid      float64 `json:"bestBid"`
	BestAsk      float64 `json:"bestAsk"`
	Spread       float64 `json:"spread"`
	SpreadPct    float64 `json:"spreadPct"`
	Imbalance    float64 `json:"imbalance"`
	BidWall      *Level  `json:"bidWall"`
	AskWall      *Level  `json:"askWall"`
	TotalBidSize float64 `json:"totalBidSize"`
	TotalAskSize float64 `json:"totalAskSize"`
}

// Analyze 计算价差、买卖压力失衡与大单墙。
func Analyze(snap exchange.OrderBookSnapshot) Analysis {
	bids := convertLevels(snap.Bids)
	asks := convertLevels(snap.Asks)

	var bestBid, bestAsk float64
	if len(bids) > 0 {
		bestBid = bids[0].Price
	}
	if len(asks) > 0 {
		bestAsk = asks[0].Price
	}

	var spread float64
	if bestBid > 0 {
		spread = (bestAsk - bestBid) / bestBid * 100
	}

	totalBid := totalSize(bids)
	totalAsk := totalSize(asks)

	var imbalance float64
	if totalBid+totalAsk > 0 {
		imbalance = (totalBid - totalAsk) / (totalBid + totalAsk) * 100
	}

	return Analysis{
		Coin:         snap.Coin,
		Bids:         bids,
		Asks:         asks,
		BestBid:      bestBid,
		BestAsk:      bestAsk,
		Spread:       roundTo(spread, 4),
		SpreadPct:    roundTo(spread, 4),
		Imbalance:    roundTo(imbalance, 2),
		BidWall:      wall(bids),
		AskWall:      wall(asks),
		TotalBidSize: roundTo(totalBid, 4),
		TotalAskSize: roundTo(totalAsk, 4),
	}
}

func convertLevels(levels []exchange.OrderBookLevel) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		out = append(out, Level{Price: l.Price, Size: l.Size})
	}
	return out
}

func totalSize(levels []Level) float64 {
	var total float64
	for _, l := range levels {
		total += l.Size
	}
	return total
}

// wall 返回数量最大的档位，空盘口返回 nil。
func wall(levels []Level) *Level {
	if len(levels) == 0 {
		return nil
	}
	max := levels[0]
	for _, l := range levels[1:] {
		if l.Size > max.Size {
			max = l
		}
	}
	return &max
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
