package outcome

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"hl-bridge/internal/exchange"
)

func TestNormalize_Error(t *testing.T) {
	env := Normalize(exchange.SubmitOutcome{Kind: exchange.SubmitError, ErrorMessage: "Insufficient margin"})
	failure, ok := env.(Failure)
	if !ok {
		t.Fatalf("expected Failure, got %T", env)
	}
	if failure.Success || failure.Error != "Insufficient margin" {
		t.Errorf("unexpected failure envelope: %+v", failure)
	}
}

func TestNormalize_Filled(t *testing.T) {
	env := Normalize(exchange.SubmitOutcome{
		Kind:      exchange.SubmitFilled,
		OID:       12345,
		AvgPrice:  50012.5,
		TotalSize: 0.5,
	})
	filled, ok := env.(OrderFilled)
	if !ok {
		t.Fatalf("expected OrderFilled, got %T", env)
	}
	if !filled.Success || !filled.Filled || filled.OID != 12345 || filled.AvgPx != 50012.5 || filled.TotalSz != 0.5 {
		t.Errorf("unexpected filled envelope: %+v", filled)
	}
}

func TestNormalize_Resting(t *testing.T) {
	env := Normalize(exchange.SubmitOutcome{Kind: exchange.SubmitResting, OID: 777})
	resting, ok := env.(OrderResting)
	if !ok {
		t.Fatalf("expected OrderResting, got %T", env)
	}
	if !resting.Success || resting.Filled || resting.OID != 777 {
		t.Errorf("unexpected resting envelope: %+v", resting)
	}

	// resting 信封必须显式包含 filled:false。
	data, err := json.Marshal(resting)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"filled":false`) {
		t.Errorf("resting envelope missing filled:false: %s", data)
	}
}

func TestNormalize_OpaqueShapes(t *testing.T) {
	raw := map[string]interface{}{"waiting": "something"}

	if env := Normalize(exchange.SubmitOutcome{Kind: exchange.SubmitOpaqueStatus, Raw: raw}); env.(OpaqueStatus).Status == nil {
		t.Error("opaque status should carry the raw payload")
	}
	if env := Normalize(exchange.SubmitOutcome{Kind: exchange.SubmitOpaqueResult}); !env.(OpaqueResult).Success {
		t.Error("opaque result should be success")
	}
}

func TestNormalizeTrigger_Resting(t *testing.T) {
	env := NormalizeTrigger(exchange.SubmitOutcome{Kind: exchange.SubmitResting, OID: 42}, "sl", 61000.5)
	armed, ok := env.(TriggerArmed)
	if !ok {
		t.Fatalf("expected TriggerArmed, got %T", env)
	}
	if !armed.Success || armed.OID != 42 || armed.TriggerType != "sl" || armed.TriggerPrice != 61000.5 {
		t.Errorf("unexpected trigger envelope: %+v", armed)
	}
}

func TestEmit_SingleLine(t *testing.T) {
	var buf bytes.Buffer
	if err := Emit(&buf, Fail("boom")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "\n") != 1 || !strings.HasSuffix(out, "\n") {
		t.Errorf("expected exactly one line, got %q", out)
	}
	if out != `{"success":false,"error":"boom"}`+"\n" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestDecodeSubmitRoundTrip(t *testing.T) {
	// 网关回执（Hyperliquid statuses 单元素）经解码与归一化后保持字段。
	info := map[string]interface{}{
		"filled": map[string]interface{}{"oid": 99999.0, "avgPx": "49990.0", "totalSz": "0.01"},
	}
	env := Normalize(exchange.DecodeSubmit(info))
	filled, ok := env.(OrderFilled)
	if !ok {
		t.Fatalf("expected OrderFilled, got %T", env)
	}
	if filled.OID != 99999 || filled.AvgPx != 49990 || filled.TotalSz != 0.01 {
		t.Errorf("unexpected decoded envelope: %+v", filled)
	}
}
