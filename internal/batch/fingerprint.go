package batch

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint 计算批处理指纹：模板、数据、行区间、命名配置、有序规则列表与替换模式。
// 任何一项变化都会得到不同的指纹。
func Fingerprint(job *Job, start, end int) uint64 {
	d := xxhash.New()

	field := func(s string) {
		_, _ = d.WriteString(strconv.Itoa(len(s)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(s)
	}

	field("template")
	field(strconv.FormatUint(xxhash.Sum64(job.Template), 16))
	field(job.TemplateName)

	field("data")
	field(strconv.Itoa(len(job.Rows)))
	for _, c := range job.Columns {
		field(c)
	}
	for _, row := range job.Rows {
		field(strconv.Itoa(len(row.Values)))
		for _, v := range row.Values {
			field(v)
		}
	}

	field("range")
	field(strconv.Itoa(start))
	field(strconv.Itoa(end))

	field("naming")
	field(job.Naming.Column)
	field(job.Naming.Prefix)
	field(job.Naming.Suffix)
	field(job.Naming.Expression)

	field("rules")
	for _, r := range job.Rules {
		field(r.Keyword)
		field(r.SourceField)
	}

	field("scope")
	field(job.Scope.String())

	return d.Sum64()
}
