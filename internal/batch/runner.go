package batch

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/logger"
	"github.com/allanpk716/docx_filler/internal/matcher"
	"github.com/allanpk716/docx_filler/internal/normalize"
	"github.com/allanpk716/docx_filler/internal/output"
	"github.com/allanpk716/docx_filler/internal/processor"
)

const module = "batch"

// Runner 逐行执行替换，行与行之间相互独立，可以并行
type Runner struct {
	codec   domain.DocumentCodec
	mutator *processor.Mutator
	workers int
	logger  logger.Logger
}

// NewRunner 创建执行器。workers <= 0 时使用 CPU 数，policy 为 nil 时使用 FirstRunWins
func NewRunner(codec domain.DocumentCodec, policy domain.MergePolicy, workers int, log logger.Logger) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		codec:   codec,
		mutator: processor.NewMutator(policy),
		workers: workers,
		logger:  log,
	}
}

// Run 处理 [start, end] 区间内的行，结果按行号排列。
// ctx 取消后不再启动新的行，已开始的行会执行完毕。
func (r *Runner) Run(ctx context.Context, job *Job, start, end int, namer *output.Namer) *Result {
	slots := make([]*domain.OutputArtifact, end-start+1)

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for index := start; index <= end; index++ {
		if ctx.Err() != nil {
			break
		}
		index := index
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			artifact := r.processRow(job, namer, index)
			slots[index-start] = &artifact
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{Total: len(slots), Artifacts: make([]domain.OutputArtifact, 0, len(slots))}
	for _, a := range slots {
		if a == nil {
			result.Skipped++
			continue
		}
		if a.Failed {
			result.Failed++
		}
		result.Artifacts = append(result.Artifacts, *a)
	}

	result.State = Completed
	if result.Failed > 0 || result.Skipped > 0 {
		result.State = PartiallyFailed
	}
	return result
}

// processRow 处理单行。任何错误（包括 panic）都只让这一行失败
func (r *Runner) processRow(job *Job, namer *output.Namer, index int) (artifact domain.OutputArtifact) {
	filename := output.BuildName(job.Rows[index-1], namer.Config(), index)

	fail := func(err error) domain.OutputArtifact {
		// 外部实现（解析器、合并策略）返回的未知错误归为 RowProcessingError
		if !domain.IsRowLocal(err) {
			err = fmt.Errorf("%w: %v", domain.ErrRowProcessing, err)
		}
		r.logger.Warn(module, "行处理失败", map[string]interface{}{
			"row":   index,
			"kind":  domain.Classify(err),
			"error": err.Error(),
		})
		return domain.OutputArtifact{
			Filename:       filename,
			SourceRowIndex: index,
			Log:            failureLog(err),
			Failed:         true,
		}
	}

	defer func() {
		if p := recover(); p != nil {
			artifact = fail(fmt.Errorf("%w: %v", domain.ErrRowProcessing, p))
		}
	}()

	source := job.Rows[index-1]
	row := domain.NewDataRow(source.Columns, normalize.NormalizeRow(source.Columns, source.Values))
	filename = namer.Name(row, index)

	r.logger.Debug(module, "开始处理行", map[string]interface{}{"row": index})

	doc, err := r.codec.Parse(job.Template)
	if err != nil {
		return fail(err)
	}
	defer doc.Close()

	patterns, err := matcher.Compile(job.Rules, row, job.Scope)
	if err != nil {
		return fail(err)
	}

	counts, err := r.mutator.Mutate(doc.Tree(), patterns)
	if err != nil {
		return fail(err)
	}

	payload, err := doc.Bytes()
	if err != nil {
		return fail(err)
	}

	r.logger.Debug(module, "行处理完成", map[string]interface{}{"row": index, "file": filename, "matched": len(counts)})

	return domain.OutputArtifact{
		Filename:       filename,
		Payload:        payload,
		SourceRowIndex: index,
		Log:            RowLog(patterns, counts),
	}
}
