package book

import (
	"math"
	"testing"

	"hl-bridge/internal/exchange"
)

func TestAnalyze(t *testing.T) {
	snap := exchange.OrderBookSnapshot{
		Coin: "BTC",
		Bids: []exchange.OrderBookLevel{{Price: 100, Size: 5}, {Price: 99, Size: 3}},
		Asks: []exchange.OrderBookLevel{{Price: 101, Size: 2}, {Price: 102, Size: 4}},
	}

	a := Analyze(snap)

	if a.BestBid != 100 || a.BestAsk != 101 {
		t.Errorf("best bid/ask = %v/%v, want 100/101", a.BestBid, a.BestAsk)
	}
	if math.Abs(a.Spread-1.0) > 1e-9 {
		t.Errorf("spread = %v, want 1.0", a.Spread)
	}
	if a.SpreadPct != a.Spread {
		t.Errorf("spreadPct = %v, want %v", a.SpreadPct, a.Spread)
	}
	// (8-6)/14*100 = 14.2857... → 保留2位 14.29
	if math.Abs(a.Imbalance-14.29) > 1e-9 {
		t.Errorf("imbalance = %v, want 14.29", a.Imbalance)
	}
	if a.TotalBidSize != 8 || a.TotalAskSize != 6 {
		t.Errorf("totals = %v/%v, want 8/6", a.TotalBidSize, a.TotalAskSize)
	}
	if a.BidWall == nil || a.BidWall.Price != 100 || a.BidWall.Size != 5 {
		t.Errorf("bidWall = %+v, want {100 5}", a.BidWall)
	}
	if a.AskWall == nil || a.AskWall.Price != 102 || a.AskWall.Size != 4 {
		t.Errorf("askWall = %+v, want {102 4}", a.AskWall)
	}
}

func TestAnalyze_EmptyBook(t *testing.T) {
	a := Analyze(exchange.OrderBookSnapshot{Coin: "BTC"})

	if a.Spread != 0 || a.Imbalance != 0 {
		t.Errorf("empty book spread/imbalance = %v/%v, want 0/0", a.Spread, a.Imbalance)
	}
	if a.BidWall != nil || a.AskWall != nil {
		t.Errorf("empty book walls should be nil")
	}
	if a.Bids == nil || a.Asks == nil {
		t.Errorf("bids/asks must marshal as [] rather than null")
	}
}
