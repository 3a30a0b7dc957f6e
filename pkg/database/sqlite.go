package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"routine-desk/server/config"
)

// OpenSQLite 打开本地 SQLite 数据库并执行迁移
// SQLite 仅允许单写连接，这里限制连接池为 1
func OpenSQLite(cfg *config.SQLiteConfig, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("打开 SQLite 失败: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLite ping 失败: %w", err)
	}

	if err := RunSQLiteMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite 连接成功", zap.String("dsn", cfg.DSN))
	return db, nil
}
