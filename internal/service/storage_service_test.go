package service

import (
	"context"
	"encoding/json"
	"latex_format_fixer/internal/config"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageServiceSaveReportLocal(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = dir

	svc := NewStorageService(cfg)
	require.IsType(t, &LocalStorageProvider{}, svc.Provider)

	report := RunReport{RunID: "run-1", Chapters: []ChapterResult{{Chapter: "代数", Total: 2, Updated: 2}}}
	url, err := svc.SaveReport(context.Background(), "latexfix_report_run-1.json", report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "latexfix_report_run-1.json"), url)

	data, err := os.ReadFile(url)
	require.NoError(t, err)
	var got RunReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Chapters, 1)
	assert.Equal(t, "代数", got.Chapters[0].Chapter)
	assert.Equal(t, 2, got.Chapters[0].Updated)
}

func TestStorageServiceFallsBackToLocal(t *testing.T) {
	t.Run("未指定类型时使用本地存储", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Storage.LocalPath = t.TempDir()

		svc := NewStorageService(cfg)
		require.IsType(t, &LocalStorageProvider{}, svc.Provider)
	})

	t.Run("minio 客户端建不起来时退回本地存储", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Storage.Type = "minio"
		cfg.Storage.LocalPath = t.TempDir()

		svc := NewStorageService(cfg)
		require.IsType(t, &LocalStorageProvider{}, svc.Provider)
	})
}
