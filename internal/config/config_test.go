package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/koalacodee/taskflow-gin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault 默认配置
func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, float64(100), cfg.Server.RateLimitRPS)
	assert.Equal(t, 200, cfg.Server.RateLimitBurst)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "taskflow", cfg.Database.DBName)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5, cfg.Events.Workers)

	// 开发环境的日志与连接池默认值
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Database.MaxIdleConns)
}

// TestLoadFromFile 从配置文件加载并覆盖默认值
func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
env: production
server:
  port: 9090
database:
  host: db.internal
  dbname: taskflow_prod
log:
  level: error
events:
  workers: 10
  webhooks:
    - url: https://hooks.example.com/tasks
      method: POST
      token: secret
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.True(t, config.IsProduction(cfg))
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "taskflow_prod", cfg.Database.DBName)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Events.Workers)
	require.Len(t, cfg.Events.Webhooks, 1)
	assert.Equal(t, "https://hooks.example.com/tasks", cfg.Events.Webhooks[0].URL)

	// 文件未覆盖的键保留默认值
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
}

// TestLoadMissingFile 指定的配置文件不存在时报错
func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// TestLoadEnvOverride 环境变量覆盖配置项
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("APP_DATABASE_PASSWORD", "env-secret")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Database.Password)
}

// TestIsProduction 环境判断
func TestIsProduction(t *testing.T) {
	assert.False(t, config.IsProduction(nil))
	assert.False(t, config.IsProduction(&config.Config{Env: "development"}))
	assert.True(t, config.IsProduction(&config.Config{Env: "production"}))
}
