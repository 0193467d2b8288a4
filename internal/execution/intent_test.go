package execution

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

type stubQuotes struct {
	mids  map[string]float64
	err   error
	calls []string
}

func (s *stubQuotes) FetchMid(_ context.Context, coin string) (float64, error) {
	s.calls = append(s.calls, coin)
	if s.err != nil {
		return 0, s.err
	}
	return s.mids[coin], nil
}

func TestParseSide(t *testing.T) {
	if side, err := ParseSide("BUY"); err != nil || side != OrderSideBuy {
		t.Fatalf("ParseSide(BUY) = %v, %v", side, err)
	}
	if side, err := ParseSide("sell"); err != nil || side != OrderSideSell {
		t.Fatalf("ParseSide(sell) = %v, %v", side, err)
	}
	if _, err := ParseSide("hold"); err == nil || !strings.Contains(err.Error(), "invalid side") {
		t.Fatalf("expected invalid side error, got %v", err)
	}
}

func TestBuildIntent_MarketOffsets(t *testing.T) {
	quotes := &stubQuotes{mids: map[string]float64{"BTC": 50000}}

	buy, err := BuildIntent(context.Background(), quotes, BuildInput{Coin: "BTC", Side: "buy", RawSize: "0.5", RawPrice: "market"})
	if err != nil {
		t.Fatalf("BuildIntent returned error: %v", err)
	}
	if buy.Price != math.Round(50000*1.001) {
		t.Errorf("market buy price = %v, want %v", buy.Price, math.Round(50000*1.001))
	}
	if buy.Price <= 50000 {
		t.Errorf("market buy price %v should be above mid", buy.Price)
	}
	if buy.Variant != VariantIOC {
		t.Errorf("market order variant = %v, want %v", buy.Variant, VariantIOC)
	}

	sell, err := BuildIntent(context.Background(), quotes, BuildInput{Coin: "BTC", Side: "sell", RawSize: "0.5"})
	if err != nil {
		t.Fatalf("BuildIntent returned error: %v", err)
	}
	if sell.Price != math.Round(50000*0.999) {
		t.Errorf("market sell price = %v, want %v", sell.Price, math.Round(50000*0.999))
	}
	if sell.Price >= 50000 {
		t.Errorf("market sell price %v should be below mid", sell.Price)
	}
}

func TestBuildIntent_LimitOpen(t *testing.T) {
	quotes := &stubQuotes{mids: map[string]float64{"ETH": 3000}}

	buy, err := BuildIntent(context.Background(), quotes, BuildInput{Coin: "ETH", Side: "buy", RawSize: "1", RawPrice: "limit_open"})
	if err != nil {
		t.Fatalf("BuildIntent returned error: %v", err)
	}
	if buy.Price != 2850 {
		t.Errorf("limit_open buy price = %v, want 2850", buy.Price)
	}
	if buy.Variant != VariantGTC {
		t.Errorf("limit_open variant = %v, want %v", buy.Variant, VariantGTC)
	}

	sell, err := BuildIntent(context.Background(), quotes, BuildInput{Coin: "ETH", Side: "sell", RawSize: "1", RawPrice: "limit_open"})
	if err != nil {
		t.Fatalf("BuildIntent returned error: %v", err)
	}
	if sell.Price != 3150 {
		t.Errorf("limit_open sell price = %v, want 3150", sell.Price)
	}
}

func TestBuildIntent_ExplicitPriceRounding(t *testing.T) {
	quotes := &stubQuotes{}

	intent, err := BuildIntent(context.Background(), quotes, BuildInput{Coin: "SOL", Side: "buy", RawSize: "2.346", RawPrice: "150.12345"})
	if err != nil {
		t.Fatalf("BuildIntent returned error: %v", err)
	}
	if len(quotes.calls) != 0 {
		t.Errorf("explicit price should not hit the quote source, calls=%v", quotes.calls)
	}
	if intent.Price != 150.123 {
		t.Errorf("price = %v, want 150.123", intent.Price)
	}
	if intent.Size != 2.35 { // SOL 数量精度2位
		t.Errorf("size = %v, want 2.35", intent.Size)
	}
	if intent.Variant != VariantGTC {
		t.Errorf("variant = %v, want %v", intent.Variant, VariantGTC)
	}
	if intent.ReduceOnly {
		t.Errorf("plain order should not be reduce-only")
	}
}

func TestBuildIntent_ZeroMidPropagates(t *testing.T) {
	quotes := &stubQuotes{mids: map[string]float64{}}

	intent, err := BuildIntent(context.Background(), quotes, BuildInput{Coin: "NOPE", Side: "buy", RawSize: "1", RawPrice: "market"})
	if err != nil {
		t.Fatalf("zero mid must not be treated as an error, got %v", err)
	}
	if intent.Price != 0 {
		t.Errorf("price = %v, want degenerate 0", intent.Price)
	}
}

func TestBuildIntent_QuoteFaultPropagates(t *testing.T) {
	quotes := &stubQuotes{err: errors.New("boom")}
	if _, err := BuildIntent(context.Background(), quotes, BuildInput{Coin: "BTC", Side: "buy", RawSize: "1"}); err == nil {
		t.Fatal("expected quote source fault to propagate")
	}
}

func TestBuildIntent_InvalidNumbers(t *testing.T) {
	quotes := &stubQuotes{}
	if _, err := BuildIntent(context.Background(), quotes, BuildInput{Coin: "BTC", Side: "buy", RawSize: "abc"}); err == nil {
		t.Fatal("expected invalid size error")
	}
	if _, err := BuildIntent(context.Background(), quotes, BuildInput{Coin: "BTC", Side: "buy", RawSize: "1", RawPrice: "oops"}); err == nil {
		t.Fatal("expected invalid price error")
	}
}

func TestResolveTrigger_DirectionMatrix(t *testing.T) {
	cases := []struct {
		side  OrderSide
		kind  TriggerKind
		above bool
	}{
		{OrderSideSell, TriggerTakeProfit, true},  // 卖出平多 + 止盈 → 向上触发
		{OrderSideSell, TriggerStopLoss, false},   // 卖出平多 + 止损 → 向下触发
		{OrderSideBuy, TriggerStopLoss, true},     // 买入平空 + 止损 → 向上触发
		{OrderSideBuy, TriggerTakeProfit, false},  // 买入平空 + 止盈 → 向下触发
	}
	for _, tc := range cases {
		spec := ResolveTrigger(tc.side, tc.kind, 100)
		if spec.TriggerAbove != tc.above {
			t.Errorf("ResolveTrigger(%s, %s).TriggerAbove = %v, want %v", tc.side, tc.kind, spec.TriggerAbove, tc.above)
		}
		if !spec.ExecuteAsMarket {
			t.Errorf("ResolveTrigger(%s, %s) should execute as market", tc.side, tc.kind)
		}
	}
}

func TestBuildTriggerIntent(t *testing.T) {
	intent, err := BuildTriggerIntent("BTC", "sell", "0.12342", "tp", "65000.17")
	if err != nil {
		t.Fatalf("BuildTriggerIntent returned error: %v", err)
	}
	if !intent.ReduceOnly {
		t.Error("trigger intent must be reduce-only")
	}
	if intent.Variant != VariantTrigger {
		t.Errorf("variant = %v, want %v", intent.Variant, VariantTrigger)
	}
	if intent.Trigger == nil {
		t.Fatal("missing trigger spec")
	}
	if intent.Trigger.Price != 65000.2 { // ≥1000 → 1位小数
		t.Errorf("trigger price = %v, want 65000.2", intent.Trigger.Price)
	}
	if intent.Size != 0.1234 { // BTC 数量精度4位
		t.Errorf("size = %v, want 0.1234", intent.Size)
	}
	if !intent.Trigger.TriggerAbove {
		t.Error("sell take-profit should trigger above")
	}

	if _, err := BuildTriggerIntent("BTC", "sell", "0.1", "stop", "65000"); err == nil {
		t.Fatal("expected invalid trigger type error")
	}
}
