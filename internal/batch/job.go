package batch

import (
	"fmt"
	"strings"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// State 批处理状态
type State int

const (
	Idle State = iota
	Running
	Completed
	PartiallyFailed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case PartiallyFailed:
		return "partially_failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Job 一次批处理的全部输入
type Job struct {
	Template     []byte
	TemplateName string
	Columns      []string
	Rows         []domain.DataRow
	Rules        []domain.ReplacementRule
	Scope        domain.ScopeMode
	// StartRow/EndRow 从 1 开始的闭区间，EndRow 为 0 表示到最后一行
	StartRow int
	EndRow   int
	Naming   domain.NamingConfig
}

// Range 校验并返回实际处理的行区间，EndRow 超出行数时截断到最后一行
func (j *Job) Range() (int, int, error) {
	if len(j.Rules) == 0 {
		return 0, 0, domain.ErrEmptyRules
	}
	if len(j.Rows) == 0 {
		return 0, 0, fmt.Errorf("%w: 没有数据行", domain.ErrDataset)
	}

	start, end := j.StartRow, j.EndRow
	if end == 0 || end > len(j.Rows) {
		end = len(j.Rows)
	}
	switch {
	case start < 1:
		return 0, 0, fmt.Errorf("%w: 起始行 %d 小于 1", domain.ErrInvalidRange, start)
	case start > len(j.Rows):
		return 0, 0, fmt.Errorf("%w: 起始行 %d 超出数据行数 %d", domain.ErrInvalidRange, start, len(j.Rows))
	case j.EndRow != 0 && j.EndRow < start:
		return 0, 0, fmt.Errorf("%w: 结束行 %d 小于起始行 %d", domain.ErrInvalidRange, j.EndRow, start)
	}
	return start, end, nil
}

// Result 批处理结果
type Result struct {
	Artifacts   []domain.OutputArtifact
	State       State
	Total       int
	Failed      int
	Skipped     int
	FromCache   bool
	Fingerprint uint64
}

// Log 汇总日志：每行一组，格式为 row <n>: <日志>，按行号排列
func (r *Result) Log() string {
	lines := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		lines = append(lines, fmt.Sprintf("row %d: %s", a.SourceRowIndex, a.Log))
	}
	return strings.Join(lines, "\n")
}

// clone 深拷贝结果，包括每个文件的内容
func (r *Result) clone() *Result {
	c := *r
	c.Artifacts = make([]domain.OutputArtifact, len(r.Artifacts))
	for i, a := range r.Artifacts {
		a.Payload = append([]byte(nil), a.Payload...)
		c.Artifacts[i] = a
	}
	return &c
}

// Summary 形如 "k of n rows failed"
func (r *Result) Summary() string {
	s := fmt.Sprintf("%d of %d rows failed", r.Failed, r.Total)
	if r.Skipped > 0 {
		s += fmt.Sprintf(", %d skipped", r.Skipped)
	}
	return s
}
