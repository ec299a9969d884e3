package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config keys for bot texts editable from the admin console.
const (
	ConfigWelcomeMessage  = "welcome_message"
	ConfigFallbackMessage = "fallback_message"
	ConfigHandoffMessage  = "handoff_message"
)

type BotConfig struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConfigRepository struct {
	db *pgxpool.Pool
}

func NewConfigRepository(db *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// GetConfig returns a config value by key; missing keys return "".
func (r *ConfigRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx, "SELECT value FROM bot_config WHERE key=$1", key).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil // Not found is not strictly an error
		}
		return "", err
	}
	return value, nil
}

func (r *ConfigRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bot_config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
	`, key, value)
	return err
}

func (r *ConfigRepository) GetAllConfigs(ctx context.Context) ([]BotConfig, error) {
	rows, err := r.db.Query(ctx, "SELECT key, value, updated_at FROM bot_config")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := []BotConfig{}
	for rows.Next() {
		var c BotConfig
		if err := rows.Scan(&c.Key, &c.Value, &c.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}
