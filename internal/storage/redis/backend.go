package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "taskpad/internal/errors"
	"taskpad/internal/storage/file"
	"taskpad/internal/task"
)

const defaultKey = "taskpad:tasks"

// Config 描述 Redis 连接参数。
type Config struct {
	Address  string
	Password string
	DB       int
	Key      string
}

type commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Backend 以 GET/SET 整体读写任务文档，编码与 JSON 文件格式一致。
type Backend struct {
	client commander
	key    string
}

// New 连接 Redis 并校验可用性。
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Address == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Wrap(task.CodePersist, err, "连接 Redis 失败")
	}
	return newBackend(client, cfg.Key), nil
}

func newBackend(client commander, key string) *Backend {
	if key == "" {
		key = defaultKey
	}
	return &Backend{client: client, key: key}
}

// Key 返回保存任务文档的键名。
func (b *Backend) Key() string { return b.key }

// Load 实现 task.Backend 接口。键不存在时返回 (nil, nil)。
func (b *Backend) Load(ctx context.Context) ([]task.Record, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, xerrors.Wrap(task.CodePersist, err, "读取 Redis 任务失败")
	}
	records, err := file.Decode(file.FormatJSON, data)
	if err != nil {
		return nil, xerrors.Wrap(task.CodePersist, err, fmt.Sprintf("Redis 键 %s 中的任务已损坏", b.key))
	}
	return records, nil
}

// Save 实现 task.Backend 接口。
func (b *Backend) Save(ctx context.Context, records []task.Record) error {
	data, err := file.Encode(file.FormatJSON, records)
	if err != nil {
		return xerrors.Wrap(task.CodePersist, err, "编码任务失败")
	}
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return xerrors.Wrap(task.CodePersist, err, "写入 Redis 任务失败")
	}
	return nil
}

// Close 关闭 Redis 连接。
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

var _ task.Backend = (*Backend)(nil)
