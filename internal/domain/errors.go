package domain

import (
	"context"
	"errors"
)

var (
	// ErrParse 模板无法解析为文档树，仅影响当前行
	ErrParse = errors.New("template parse failed")
	// ErrRule 规则引用的数据列在当前行中不存在，仅影响当前行
	ErrRule = errors.New("rule references missing column")
	// ErrRowProcessing 替换或序列化过程中的其他错误，仅影响当前行
	ErrRowProcessing = errors.New("row processing failed")

	// ErrBusy 同一会话已有批处理在运行
	ErrBusy = errors.New("batch already running")
	// ErrEmptyRules 规则列表为空
	ErrEmptyRules = errors.New("empty rule set")
	// ErrInvalidRange 行范围非法
	ErrInvalidRange = errors.New("invalid row range")
	// ErrDataset 数据集无法读取或为空
	ErrDataset = errors.New("dataset unreadable")
	// ErrInvalidConfig 配置非法
	ErrInvalidConfig = errors.New("invalid config")
)

// Classify 返回错误在分类体系中的名称
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Canceled"
	case errors.Is(err, ErrParse):
		return "ParseError"
	case errors.Is(err, ErrRule):
		return "RuleError"
	case errors.Is(err, ErrRowProcessing):
		return "RowProcessingError"
	case errors.Is(err, ErrBusy):
		return "Busy"
	case errors.Is(err, ErrEmptyRules), errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrDataset), errors.Is(err, ErrInvalidConfig):
		return "BatchError"
	default:
		return "RowProcessingError"
	}
}

// IsRowLocal 判断错误是否只影响单行
func IsRowLocal(err error) bool {
	return errors.Is(err, ErrParse) || errors.Is(err, ErrRule) || errors.Is(err, ErrRowProcessing)
}
