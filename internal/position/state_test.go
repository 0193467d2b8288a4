package position

import (
	"testing"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func newPosition(symbol string, contracts float64, side string) ccxt.Position {
	return ccxt.Position{
		Symbol:    strPtr(symbol),
		Contracts: floatPtr(contracts),
		Side:      strPtr(side),
	}
}

func TestConvertPosition_SignedSizeFromRawSzi(t *testing.T) {
	raw := newPosition("BTC/USDC:USDC", 0.5, "short")
	raw.Info = map[string]interface{}{
		"position": map[string]interface{}{
			"coin":          "BTC",
			"szi":           "-0.5",
			"entryPx":       "60000",
			"unrealizedPnl": "-12.5",
			"leverage":      map[string]interface{}{"value": 10.0},
		},
	}

	snap := convertPosition(raw)
	if snap.Coin != "BTC" {
		t.Errorf("coin = %s, want BTC", snap.Coin)
	}
	if snap.SignedSize != -0.5 {
		t.Errorf("signed size = %v, want -0.5", snap.SignedSize)
	}
	if snap.EntryPrice != 60000 {
		t.Errorf("entry price = %v, want 60000", snap.EntryPrice)
	}
	if snap.Leverage != 10 {
		t.Errorf("leverage = %v, want 10", snap.Leverage)
	}
}

func TestConvertPosition_FallsBackToTypedFields(t *testing.T) {
	long := convertPosition(newPosition("ETH/USDC:USDC", 2, "long"))
	if long.Coin != "ETH" {
		t.Errorf("coin = %s, want ETH", long.Coin)
	}
	if long.SignedSize != 2 {
		t.Errorf("signed size = %v, want 2", long.SignedSize)
	}

	short := convertPosition(newPosition("ETH/USDC:USDC", 2, "short"))
	if short.SignedSize != -2 {
		t.Errorf("signed size = %v, want -2", short.SignedSize)
	}
}

func TestCoinFromSymbol(t *testing.T) {
	if got := coinFromSymbol("SOL/USDC:USDC"); got != "SOL" {
		t.Errorf("coinFromSymbol = %s, want SOL", got)
	}
	if got := coinFromSymbol("SOL"); got != "SOL" {
		t.Errorf("coinFromSymbol = %s, want SOL", got)
	}
}
