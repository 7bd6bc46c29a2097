package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
)

// ErrSettingNotFound 配置项不存在
var ErrSettingNotFound = errors.New("setting not found")

// 配置项键
const settingRules = "rules"

// GetSetting 获取配置项
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
		}
		return "", err
	}
	return value, nil
}

// SetSetting 设置配置项
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// DeleteSetting 删除配置项
func (s *Store) DeleteSetting(key string) error {
	_, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key)
	return err
}

// LoadRules 读取界面保存的阈值覆盖；未保存时 found 为 false
func (s *Store) LoadRules() (rules merge.Rules, found bool, err error) {
	raw, err := s.GetSetting(settingRules)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return merge.Rules{}, false, nil
		}
		return merge.Rules{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return merge.Rules{}, false, fmt.Errorf("decode rules: %w", err)
	}
	return rules, true, nil
}

// SaveRules 保存阈值覆盖
func (s *Store) SaveRules(rules merge.Rules) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	return s.SetSetting(settingRules, string(data))
}

// ResetRules 清除阈值覆盖
func (s *Store) ResetRules() error {
	return s.DeleteSetting(settingRules)
}
