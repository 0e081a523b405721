package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config vitalsense-data（HTTP API + 检测引擎）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	Database DatabaseConfig
	Redis    struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Detection DetectionConfig
	CGM       CGMConfig  `yaml:"cgm"`
	MQTT      MQTTConfig `yaml:"mqtt"`

	// 相关性事件发布的 Redis Stream 名称
	EventsStream string

	// 最新体征缓存的 TTL（秒）
	LatestVitalsTTLSec int
}

// DatabaseConfig PostgreSQL 配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// DetectionConfig 检测阈值配置
// 血糖尖峰与活动低谷的阈值可按部署调整，默认值为行业常用值
type DetectionConfig struct {
	SpikeDeltaMgDl    float64 // 尖峰最小上升幅度（mg/dL）
	SpikeTimeframeMin int     // 尖峰时间窗（分钟）
	DipWindowMin      int     // 低谷滚动窗口宽度（分钟）
	DipStepsThreshold int     // 低谷步数阈值
}

// CGMConfig CGM 厂家云服务配置（拉取血糖读数）
type CGMConfig struct {
	Enabled bool   `yaml:"enabled"`  // 是否启用 CGM 同步（默认 false）
	BaseURL string `yaml:"base_url"` // 厂家 API 地址
	APIKey  string `yaml:"api_key"`  // API Key
}

// MQTTConfig MQTT 配置（用于穿戴设备上报样本）
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`   // 是否启用 MQTT 接入（默认 false）
	Broker   string `yaml:"broker"`    // MQTT Broker 地址（如 "tcp://localhost:1883"）
	ClientID string `yaml:"client_id"` // 客户端 ID
	Username string `yaml:"username"`  // 用户名（可选）
	Password string `yaml:"password"`  // 密码（可选）
	Topic    string `yaml:"topic"`     // 订阅的主题（如 "vitalsense/+/samples"）
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "vitalsense")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 检测阈值（默认：+30 mg/dL / 60 分钟；20 分钟窗口 < 100 步）
	cfg.Detection.SpikeDeltaMgDl = parseFloat(getEnv("SPIKE_DELTA_MG_DL", "30"), 30)
	cfg.Detection.SpikeTimeframeMin = parseInt(getEnv("SPIKE_TIMEFRAME_MIN", "60"), 60)
	cfg.Detection.DipWindowMin = parseInt(getEnv("DIP_WINDOW_MIN", "20"), 20)
	cfg.Detection.DipStepsThreshold = parseInt(getEnv("DIP_STEPS_THRESHOLD", "100"), 100)

	// CGM 配置（默认禁用）
	cfg.CGM.Enabled = getEnv("CGM_ENABLED", "false") == "true"
	cfg.CGM.BaseURL = getEnv("CGM_BASE_URL", "")
	cfg.CGM.APIKey = getEnv("CGM_API_KEY", "")

	// MQTT 配置（穿戴设备样本接入，默认禁用）
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "vitalsense-data")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "vitalsense/+/samples")

	cfg.EventsStream = getEnv("EVENTS_STREAM", "correlation:events:stream")
	cfg.LatestVitalsTTLSec = parseInt(getEnv("LATEST_VITALS_TTL_SEC", "86400"), 86400)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}
