package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"taskpad/pkg/logger"
)

// Config 描述 taskpad 启动时需要的全部配置。
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Notifier NotifierConfig `yaml:"notifier"`
	Log      logger.Config  `yaml:"log"`
	Tasks    TasksConfig    `yaml:"tasks"`
}

// StorageConfig 选择任务存储后端。
type StorageConfig struct {
	Driver             string      `yaml:"driver"`
	Path               string      `yaml:"path"`
	Format             string      `yaml:"format"`
	DSN                string      `yaml:"dsn"`
	LockTimeoutSeconds int         `yaml:"lock_timeout_seconds"`
	Redis              RedisConfig `yaml:"redis"`
}

// RedisConfig 描述 Redis 后端的连接信息。
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// NotifierConfig 选择任务变更事件的去向。
type NotifierConfig struct {
	Driver   string         `yaml:"driver"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

// RabbitMQConfig 描述 RabbitMQ 通知器的连接信息。
type RabbitMQConfig struct {
	URL     string `yaml:"url"`
	Queue   string `yaml:"queue"`
	Durable bool   `yaml:"durable"`
}

// TasksConfig 控制任务模型的行为。
type TasksConfig struct {
	StrictFields bool `yaml:"strict_fields"`
}

// 支持的存储驱动。
const (
	DriverFile   = "file"
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// LockTimeout 返回文件锁等待时间。
func (s StorageConfig) LockTimeout() time.Duration {
	return time.Duration(s.LockTimeoutSeconds) * time.Second
}

// Load 解析指定路径的配置文件。文件不存在时使用默认配置；随后应用环境变量覆盖。
func Load(path string) (*Config, error) {
	var cfg Config
	baseDir := "."
	if strings.TrimSpace(path) != "" {
		baseDir = filepath.Dir(path)
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return nil, fmt.Errorf("解析配置失败: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv 将 .env 文件中的变量加载到进程环境中，已存在的变量不会被覆盖。
// 不存在的文件会被忽略。
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("加载 %s 失败: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TASKPAD_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("TASKPAD_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("TASKPAD_STORAGE_FORMAT"); v != "" {
		c.Storage.Format = v
	}
	if v := os.Getenv("TASKPAD_MYSQL_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("TASKPAD_REDIS_ADDR"); v != "" {
		c.Storage.Redis.Address = v
	}
	if v := os.Getenv("TASKPAD_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKPAD_REDIS_DB 不是整数: %w", err)
		}
		c.Storage.Redis.DB = db
	}
	if v := os.Getenv("TASKPAD_RABBITMQ_URL"); v != "" {
		c.Notifier.RabbitMQ.URL = v
		if c.Notifier.Driver == "" {
			c.Notifier.Driver = "rabbitmq"
		}
	}
	if v := os.Getenv("TASKPAD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TASKPAD_STRICT_FIELDS"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TASKPAD_STRICT_FIELDS 不是布尔值: %w", err)
		}
		c.Tasks.StrictFields = strict
	}
	return nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverFile
	}
	c.Storage.Format = strings.ToLower(strings.TrimSpace(c.Storage.Format))
	if c.Storage.Format == "" {
		c.Storage.Format = "json"
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case DriverSQLite:
			c.Storage.Path = "tasks.db"
		case DriverFile:
			c.Storage.Path = "tasks." + c.Storage.Format
		}
	}
	if c.Storage.Path != "" {
		c.Storage.Path = resolve(baseDir, c.Storage.Path)
	}
	if c.Storage.LockTimeoutSeconds <= 0 {
		c.Storage.LockTimeoutSeconds = 5
	}
	if c.Storage.Redis.Key == "" {
		c.Storage.Redis.Key = "taskpad:tasks"
	}

	c.Notifier.Driver = strings.ToLower(strings.TrimSpace(c.Notifier.Driver))
	if c.Notifier.Driver == "" {
		c.Notifier.Driver = "log"
	}
	if c.Notifier.RabbitMQ.Queue == "" {
		c.Notifier.RabbitMQ.Queue = "taskpad.events"
	}

	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	// 默认写文件，避免日志与交互菜单混在同一终端。
	if len(c.Log.OutputPaths) == 0 {
		c.Log.OutputPaths = []string{"taskpad.log"}
	}
	for i, out := range c.Log.OutputPaths {
		switch strings.ToLower(out) {
		case "stdout", "stderr", "discard":
		default:
			c.Log.OutputPaths[i] = resolve(baseDir, out)
		}
	}
	if c.Log.Audit.Enabled && c.Log.Audit.Path == "" {
		c.Log.Audit.Path = "audit.log"
	}
	if c.Log.Audit.Path != "" {
		c.Log.Audit.Path = resolve(baseDir, c.Log.Audit.Path)
	}
}

// Validate 检查驱动名称与必填字段。
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Format != "json" && c.Storage.Format != "yaml" && c.Storage.Format != "yml" {
			return fmt.Errorf("不支持的文件格式: %s", c.Storage.Format)
		}
	case DriverMemory, DriverSQLite:
	case DriverMySQL:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("mysql 驱动需要配置 storage.dsn")
		}
	case DriverRedis:
		if strings.TrimSpace(c.Storage.Redis.Address) == "" {
			return errors.New("redis 驱动需要配置 storage.redis.address")
		}
	default:
		return fmt.Errorf("未知的存储驱动: %s", c.Storage.Driver)
	}

	switch c.Notifier.Driver {
	case "log", "none":
	case "rabbitmq":
		if strings.TrimSpace(c.Notifier.RabbitMQ.URL) == "" {
			return errors.New("rabbitmq 通知器需要配置 notifier.rabbitmq.url")
		}
	default:
		return fmt.Errorf("未知的通知驱动: %s", c.Notifier.Driver)
	}
	return nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
