package journal

import (
	"context"
	"testing"

	"hl-bridge/internal/config"
	"hl-bridge/internal/store"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()

	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	j, err := New(st, nil)
	if err != nil {
		t.Fatalf("初始化流水失败: %v", err)
	}
	return j
}

func TestRecord(t *testing.T) {
	j := newTestJournal(t)

	j.Record(context.Background(), []string{"order", "BTC", "buy", "0.1"}, map[string]interface{}{"success": true, "filled": true})
	j.Record(context.Background(), []string{"cancel", "BTC", "123"}, map[string]interface{}{"success": false, "error": "boom"})

	rows, err := j.db.Query(`SELECT command, success, envelope FROM bridge_invocations ORDER BY id`)
	if err != nil {
		t.Fatalf("查询流水失败: %v", err)
	}
	defer rows.Close()

	type row struct {
		command  string
		success  int
		envelope string
	}
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.command, &r.success, &r.envelope); err != nil {
			t.Fatalf("扫描失败: %v", err)
		}
		got = append(got, r)
	}

	if len(got) != 2 {
		t.Fatalf("流水行数 = %d, want 2", len(got))
	}
	if got[0].command != "order" || got[0].success != 1 {
		t.Errorf("第一行 = %+v", got[0])
	}
	if got[1].command != "cancel" || got[1].success != 0 {
		t.Errorf("第二行 = %+v", got[1])
	}
}

func TestRecord_NilJournalIsNoop(t *testing.T) {
	var j *Journal
	// 流水关闭时 Record 必须安全退化为空操作。
	j.Record(context.Background(), []string{"balance"}, map[string]interface{}{"success": true})
}
