package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/allanpk716/docx_filler/internal/batch"
	"github.com/allanpk716/docx_filler/internal/config"
	"github.com/allanpk716/docx_filler/internal/dataset"
	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/logger"
	"github.com/allanpk716/docx_filler/internal/output"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// BatchLogName 汇总日志文件名
const BatchLogName = "batch_log.txt"

// ExecuteBatch 加载模板、数据和规则，执行批处理并写出结果
func ExecuteBatch(ctx context.Context, cfg *config.Config, manager config.ConfigManager, log logger.Logger) (*batch.Result, []string, error) {
	template, err := os.ReadFile(cfg.Template)
	if err != nil {
		return nil, nil, fmt.Errorf("读取模板文件失败: %w", err)
	}

	data, err := dataset.Load(cfg.Data, cfg.Sheet)
	if err != nil {
		return nil, nil, err
	}
	log.Info(module, "数据加载完成", map[string]interface{}{
		"file":    cfg.Data,
		"sheet":   data.Sheet,
		"rows":    data.Len(),
		"columns": len(data.Columns),
	})

	rules, err := manager.LoadRules(cfg)
	if err != nil {
		return nil, nil, err
	}

	ttl, err := cfg.CacheDuration()
	if err != nil {
		return nil, nil, err
	}

	runner := batch.NewRunner(docx.NewCodec(), nil, cfg.Workers, log)
	session := batch.NewSession(runner, batch.NewBatchCache(ttl), log)

	job := &batch.Job{
		Template:     template,
		TemplateName: filepath.Base(cfg.Template),
		Columns:      data.Columns,
		Rows:         data.Rows,
		Rules:        rules,
		Scope:        cfg.ScopeMode(),
		StartRow:     cfg.StartRow,
		EndRow:       cfg.EndRow,
		Naming:       cfg.Naming,
	}

	log.Info(module, "开始批处理", map[string]interface{}{
		"session": session.ID,
		"project": cfg.ProjectName,
		"rules":   len(rules),
		"scope":   job.Scope.String(),
	})

	result, err := session.Run(ctx, job)
	if err != nil {
		return nil, nil, err
	}

	written, err := WriteOutputs(cfg.Output, cfg.Naming.Prefix, result)
	return result, written, err
}

// WriteOutputs 写出结果文件（或压缩包）以及汇总日志，返回写出的文件路径
func WriteOutputs(out config.OutputConfig, prefix string, result *batch.Result) ([]string, error) {
	if err := os.MkdirAll(out.Dir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(out.Dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("写入文件 %s 失败: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	successful := output.Successful(result.Artifacts)
	if out.Archive {
		if len(successful) > 0 {
			name, data, err := output.Bundle(successful, prefix)
			if err != nil {
				return written, err
			}
			if err := write(name, data); err != nil {
				return written, err
			}
		}
	} else {
		for _, a := range successful {
			if err := write(a.Filename, a.Payload); err != nil {
				return written, err
			}
		}
	}

	if err := write(BatchLogName, []byte(result.Log()+"\n")); err != nil {
		return written, err
	}
	return written, nil
}

// failedRows 返回失败行的行号
func failedRows(artifacts []domain.OutputArtifact) []int {
	var rows []int
	for _, a := range artifacts {
		if a.Failed {
			rows = append(rows, a.SourceRowIndex)
		}
	}
	return rows
}
