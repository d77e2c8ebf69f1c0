package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	xerrors "taskpad/internal/errors"
	"taskpad/internal/task"
)

const (
	defaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

// Backend 将全部任务保存在单个文件中。
//
// 每次写入都先写临时文件并 fsync，再原子地 rename 覆盖目标文件；读写期间
// 持有 <path>.lock 上的排他锁。
type Backend struct {
	path        string
	format      Format
	lock        *flock.Flock
	lockTimeout time.Duration
}

// Option 调整 Backend 的行为。
type Option func(*Backend)

// WithFormat 指定文件编码格式，默认 json。
func WithFormat(format Format) Option {
	return func(b *Backend) {
		if format != "" {
			b.format = format
		}
	}
}

// WithLockTimeout 指定获取文件锁的最长等待时间。
func WithLockTimeout(timeout time.Duration) Option {
	return func(b *Backend) {
		if timeout > 0 {
			b.lockTimeout = timeout
		}
	}
}

// New 创建文件后端，必要时创建父目录。文件本身在第一次写入时才创建。
func New(path string, opts ...Option) (*Backend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "任务文件路径不能为空")
	}
	b := &Backend{
		path:        path,
		format:      FormatJSON,
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, xerrors.Wrap(task.CodePersist, err, "创建任务目录失败")
		}
	}
	b.lock = flock.New(path + ".lock")
	return b, nil
}

// Path 返回任务文件路径。
func (b *Backend) Path() string { return b.path }

// Load 实现 task.Backend 接口。文件不存在时返回 (nil, nil)。
func (b *Backend) Load(ctx context.Context) ([]task.Record, error) {
	unlock, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, xerrors.Wrap(task.CodePersist, err, "读取任务文件失败")
	}
	records, err := Decode(b.format, data)
	if err != nil {
		return nil, xerrors.Wrap(task.CodePersist, err, "任务文件已损坏: "+b.path)
	}
	return records, nil
}

// Save 实现 task.Backend 接口。
func (b *Backend) Save(ctx context.Context, records []task.Record) error {
	data, err := Encode(b.format, records)
	if err != nil {
		return xerrors.Wrap(task.CodePersist, err, "编码任务失败")
	}

	unlock, err := b.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := writeFileAtomic(b.path, data, 0o644); err != nil {
		return xerrors.Wrap(task.CodePersist, err, "写入任务文件失败")
	}
	return nil
}

// Close 释放文件锁。
func (b *Backend) Close() error {
	if b.lock == nil {
		return nil
	}
	return b.lock.Close()
}

func (b *Backend) acquire(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, b.lockTimeout)
	defer cancel()
	locked, err := b.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, xerrors.Wrap(task.CodePersist, err, "获取任务文件锁失败")
	}
	if !locked {
		return nil, xerrors.New(task.CodePersist, fmt.Sprintf("任务文件被其它进程占用: %s", b.path))
	}
	return func() { _ = b.lock.Unlock() }, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

var _ task.Backend = (*Backend)(nil)
