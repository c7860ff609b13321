package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Decode 解码 values 中的某个键，返回该键是否存在
func Decode(values map[string]json.RawMessage, key string, out any) (bool, error) {
	raw, ok := values[key]
	if !ok || raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// String 读取字符串，不存在或为 null 时返回空串
func String(values map[string]json.RawMessage, key string) string {
	var s string
	if _, err := Decode(values, key, &s); err != nil {
		return ""
	}
	return s
}

// Bool 读取布尔值，不存在时返回 false
func Bool(values map[string]json.RawMessage, key string) bool {
	var b bool
	if _, err := Decode(values, key, &b); err != nil {
		return false
	}
	return b
}

// GetString 从存储中读取单个字符串
func GetString(ctx context.Context, s Store, key string) (string, error) {
	values, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return String(values, key), nil
}

// GetValue 从存储中读取并解码单个键
func GetValue(ctx context.Context, s Store, key string, out any) (bool, error) {
	values, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return Decode(values, key, out)
}
