package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/matcher"
)

const docxExt = ".docx"

// 文件名中不允许出现的字符
var illegalChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// Sanitize 把非法字符替换为下划线
func Sanitize(name string) string {
	return illegalChars.Replace(name)
}

// BuildName 生成输出文件名。
// 配置了命名列且该列存在时取列值作为主体，否则使用 result_<行号>。
func BuildName(row domain.DataRow, cfg domain.NamingConfig, rowIndex int) string {
	return compose(cfg, baseName(row, cfg, rowIndex))
}

func baseName(row domain.DataRow, cfg domain.NamingConfig, rowIndex int) string {
	if cfg.Column != "" {
		if value, ok := row.Get(cfg.Column); ok {
			if base := matcher.CleanText(value); base != "" {
				return base
			}
		}
	}
	return "result_" + strconv.Itoa(rowIndex)
}

func compose(cfg domain.NamingConfig, base string) string {
	return Sanitize(cfg.Prefix + base + cfg.Suffix + docxExt)
}

// Namer 带可选表达式的文件命名器，一个批次编译一次
type Namer struct {
	cfg     domain.NamingConfig
	program *vm.Program
}

// NewNamer 创建命名器。表达式以各列名为变量，另提供 row（列名到值的映射）与 index（行号）。
func NewNamer(cfg domain.NamingConfig, columns []string) (*Namer, error) {
	n := &Namer{cfg: cfg}
	if strings.TrimSpace(cfg.Expression) == "" {
		return n, nil
	}

	sample := domain.NewDataRow(columns, nil)
	program, err := expr.Compile(cfg.Expression, expr.Env(exprEnv(sample, 0)))
	if err != nil {
		return nil, fmt.Errorf("%w: 命名表达式编译失败: %v", domain.ErrInvalidConfig, err)
	}
	n.program = program
	return n, nil
}

// Name 计算文件名。表达式求值失败或结果为空时退回 BuildName 的规则。
func (n *Namer) Name(row domain.DataRow, rowIndex int) string {
	if n.program != nil {
		out, err := expr.Run(n.program, exprEnv(row, rowIndex))
		if err == nil && out != nil {
			if base := matcher.CleanText(fmt.Sprint(out)); base != "" {
				return compose(n.cfg, base)
			}
		}
	}
	return BuildName(row, n.cfg, rowIndex)
}

// Config 返回命名配置
func (n *Namer) Config() domain.NamingConfig {
	return n.cfg
}

func exprEnv(row domain.DataRow, rowIndex int) map[string]interface{} {
	values := row.Map()
	env := make(map[string]interface{}, len(values)+2)
	for k, v := range values {
		env[k] = v
	}
	env["row"] = values
	env["index"] = rowIndex
	return env
}
