// Package journal 把每次命令调用及其结果信封落盘到本地 SQLite，
// 方便事后核对下过什么单、交易所回了什么。
// 流水永远是旁路：写入失败只记日志，绝不影响信封输出。
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"hl-bridge/internal/store"
)

// Journal 负责持久化调用流水。
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

// New 初始化流水存储并建表。
func New(store *store.Store, logger *zap.Logger) (*Journal, error) {
	if store == nil {
		return nil, fmt.Errorf("journal: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	j := &Journal{
		db:     store.DB(),
		logger: logger,
	}

	if err := j.initSchema(); err != nil {
		return nil, err
	}

	return j, nil
}

func (j *Journal) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS bridge_invocations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	command TEXT NOT NULL,
	argv TEXT NOT NULL,
	success INTEGER NOT NULL,
	envelope TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bridge_invocations_command ON bridge_invocations(command);
`
	if _, err := j.db.Exec(stmt); err != nil {
		return fmt.Errorf("journal: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入一次调用。argv 必须是已剥离凭证覆盖项之后的参数。
func (j *Journal) Record(ctx context.Context, argv []string, envelope interface{}) {
	if j == nil {
		return
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		j.logger.Warn("序列化结果信封失败", zap.Error(err))
		return
	}

	command := ""
	if len(argv) > 0 {
		command = strings.ToLower(argv[0])
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO bridge_invocations (command, argv, success, envelope, created_at) VALUES (?, ?, ?, ?, ?)`,
		command,
		strings.Join(argv, " "),
		boolToInt(envelopeSuccess(payload)),
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		j.logger.Warn("记录调用流水失败", zap.Error(err))
	}
}

func envelopeSuccess(payload []byte) bool {
	var probe struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	return probe.Success
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
