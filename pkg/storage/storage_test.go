package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// 最小可识别的 PNG 文件头
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newTestStorage(t *testing.T, maxSize int64) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), maxSize)
	if err != nil {
		t.Fatalf("NewLocalStorage 失败: %v", err)
	}
	return s
}

func TestSave_SniffsContentType(t *testing.T) {
	s := newTestStorage(t, 1<<20)

	meta, err := s.Save(context.Background(), "forms/f1/u1", "photo.PNG", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	if meta.MimeType != "image/png" {
		t.Errorf("期望 image/png，实际 %s", meta.MimeType)
	}
	if meta.OriginalName != "photo.PNG" {
		t.Errorf("期望保留原始文件名，实际 %s", meta.OriginalName)
	}
	if meta.Size != int64(len(pngHeader)) {
		t.Errorf("期望大小 %d，实际 %d", len(pngHeader), meta.Size)
	}
	if !strings.HasPrefix(meta.Path, "forms/f1/u1/") || !strings.HasSuffix(meta.Path, ".png") {
		t.Errorf("存储路径不符合预期: %s", meta.Path)
	}

	rc, err := s.Open(meta.Path)
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, pngHeader) {
		t.Error("读取内容与写入不一致")
	}
}

func TestSave_TextDisguisedAsPDF(t *testing.T) {
	s := newTestStorage(t, 1<<20)

	meta, err := s.Save(context.Background(), "x", "report.pdf", strings.NewReader("just some text"))
	if err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	if meta.MimeType == "application/pdf" {
		t.Error("扩展名伪装的文本文件不应识别为 PDF")
	}
}

func TestSave_TooLarge(t *testing.T) {
	s := newTestStorage(t, 4)

	_, err := s.Save(context.Background(), "x", "a.txt", strings.NewReader("12345"))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("期望 ErrFileTooLarge，实际 %v", err)
	}
}

func TestSave_Empty(t *testing.T) {
	s := newTestStorage(t, 1<<20)

	_, err := s.Save(context.Background(), "x", "a.txt", strings.NewReader(""))
	if !errors.Is(err, ErrEmptyFile) {
		t.Errorf("期望 ErrEmptyFile，实际 %v", err)
	}
}

func TestSave_DirTraversalContained(t *testing.T) {
	s := newTestStorage(t, 1<<20)

	meta, err := s.Save(context.Background(), "../../etc", "a.png", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	if strings.Contains(meta.Path, "..") {
		t.Errorf("路径不应包含 ..: %s", meta.Path)
	}
}

func TestRemove_Idempotent(t *testing.T) {
	s := newTestStorage(t, 1<<20)

	meta, _ := s.Save(context.Background(), "x", "a.png", bytes.NewReader(pngHeader))
	if err := s.Remove(meta.Path); err != nil {
		t.Fatalf("第一次删除失败: %v", err)
	}
	if err := s.Remove(meta.Path); err != nil {
		t.Errorf("重复删除不应报错: %v", err)
	}
}
