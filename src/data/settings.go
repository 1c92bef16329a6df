package data

import (
	"strconv"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

// Names of the operator tunables kept in the settings table.
const (
	SettingAllowedOrigins      = "allowed_origins"
	SettingExplorerURLTemplate = "explorer_url_template"
	SettingRateLimit           = "rate_limit"
	SettingRateWindowSeconds   = "rate_window_seconds"
)

var (
	settingsCache map[string]string
	settingsMu    sync.RWMutex
)

// LoadSettings replaces the cache with the settings table.
func LoadSettings(db *gorm.DB) error {
	var rows []types.Setting
	if err := db.Find(&rows).Error; err != nil {
		return err
	}

	fresh := make(map[string]string, len(rows))
	for _, s := range rows {
		fresh[s.Name] = strings.TrimSpace(s.Value)
	}

	settingsMu.Lock()
	settingsCache = fresh
	settingsMu.Unlock()
	return nil
}

// SaveSetting upserts one value and refreshes its cache entry.
func SaveSetting(db *gorm.DB, name, value string) error {
	row := types.Setting{Name: name, Value: value}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	settingsMu.Lock()
	if settingsCache == nil {
		settingsCache = make(map[string]string)
	}
	settingsCache[name] = strings.TrimSpace(value)
	settingsMu.Unlock()
	return nil
}

// GetSetting returns the cached value, empty when unset.
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsCache[name]
}

// PositiveIntSetting returns the cached value when it parses as an integer
// above zero.
func PositiveIntSetting(name string) (int, bool) {
	n, err := strconv.Atoi(GetSetting(name))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
