package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

const upsertSQL = `INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value`

// SQLiteStore 基于 SQLite 的存储，适合多个进程共享同一个存储
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	feed   feed
}

// NewSQLiteStore 打开或创建 SQLite 存储
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// :memory: 数据库按连接隔离
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	logger.Debug("opened sqlite store", zap.String("path", path))

	return &SQLiteStore{
		db:     db,
		path:   path,
		logger: logger,
	}, nil
}

// Get 读取键
func (s *SQLiteStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return readKeys(ctx, tx, keys)
}

// Set 在一个事务中写入所有键
func (s *SQLiteStore) Set(ctx context.Context, values map[string]any) error {
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	keys := make([]string, 0, len(encoded))
	for key := range encoded {
		keys = append(keys, key)
	}
	current, err := readKeys(ctx, tx, keys)
	if err != nil {
		return err
	}

	changes := applyChanges(current, encoded)
	for key, value := range changes {
		if value == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, upsertSQL, key, string(value)); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.feed.publish(changes)
	return nil
}

// Clear 删除所有键
func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := readKeys(ctx, tx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("failed to clear kv table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	changes := make(ChangeSet, len(current))
	for key := range current {
		changes[key] = nil
	}

	s.logger.Info("store cleared", zap.String("path", s.path))
	s.feed.publish(changes)
	return nil
}

// Subscribe 订阅本进程内的变化
func (s *SQLiteStore) Subscribe() (<-chan ChangeSet, func()) {
	return s.feed.subscribe()
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error {
	s.feed.close()
	return s.db.Close()
}

// readKeys 读取指定键，keys 为空时读取全部
func readKeys(ctx context.Context, tx *sql.Tx, keys []string) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage)

	if len(keys) == 0 {
		rows, err := tx.QueryContext(ctx, `SELECT key, value FROM kv`)
		if err != nil {
			return nil, fmt.Errorf("failed to query kv table: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				return nil, fmt.Errorf("failed to scan row: %w", err)
			}
			result[key] = json.RawMessage(value)
		}
		return result, rows.Err()
	}

	for _, key := range keys {
		var value string
		err := tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		result[key] = json.RawMessage(value)
	}
	return result, nil
}
