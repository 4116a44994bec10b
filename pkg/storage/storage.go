package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrFileTooLarge = errors.New("文件超过大小限制")
	ErrEmptyFile    = errors.New("文件内容为空")
)

// FileMeta 存储后的文件元数据；业务层只持久化元数据，不接触文件内容
type FileMeta struct {
	Path         string // 相对存储根目录的路径
	OriginalName string
	MimeType     string // 按文件内容嗅探，而非客户端声明
	Size         int64
}

// Storage 文件存储接口
type Storage interface {
	// Save 将内容写入 dir 目录下的新文件，文件名随机生成
	Save(ctx context.Context, dir, originalName string, r io.Reader) (*FileMeta, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

// LocalStorage 本地磁盘存储
type LocalStorage struct {
	root    string
	maxSize int64
}

// NewLocalStorage 创建本地存储，root 不存在时自动创建
func NewLocalStorage(root string, maxSize int64) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &LocalStorage{root: root, maxSize: maxSize}, nil
}

func (s *LocalStorage) Save(ctx context.Context, dir, originalName string, r io.Reader) (*FileMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel := filepath.Join(filepath.Clean("/"+dir), uuid.New().String()+strings.ToLower(filepath.Ext(originalName)))
	rel = strings.TrimPrefix(rel, string(filepath.Separator))
	full := filepath.Join(s.root, rel)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}

	// 多读 1 字节用于判断是否超限
	n, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	switch {
	case err != nil:
		_ = os.Remove(full)
		return nil, fmt.Errorf("写入文件失败: %w", err)
	case n > s.maxSize:
		_ = os.Remove(full)
		return nil, ErrFileTooLarge
	case n == 0:
		_ = os.Remove(full)
		return nil, ErrEmptyFile
	}

	mt, err := mimetype.DetectFile(full)
	if err != nil {
		_ = os.Remove(full)
		return nil, fmt.Errorf("识别文件类型失败: %w", err)
	}

	return &FileMeta{
		Path:         filepath.ToSlash(rel),
		OriginalName: filepath.Base(originalName),
		MimeType:     mt.String(),
		Size:         n,
	}, nil
}

func (s *LocalStorage) Open(path string) (io.ReadCloser, error) {
	return os.Open(s.resolve(path))
}

func (s *LocalStorage) Remove(path string) error {
	if err := os.Remove(s.resolve(path)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// resolve 将相对路径映射到存储根目录下；先按绝对路径 Clean，.. 无法越出根目录
func (s *LocalStorage) resolve(path string) string {
	return filepath.Join(s.root, filepath.Clean("/"+filepath.FromSlash(path)))
}
