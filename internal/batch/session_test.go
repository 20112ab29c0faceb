package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/suite"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/allanpk716/docx_filler/internal/testutil"
	"github.com/allanpk716/docx_filler/pkg/docx"
)

// countingCodec 统计模板解析次数，可在解析时执行钩子
type countingCodec struct {
	inner  domain.DocumentCodec
	parses atomic.Int64
	hook   func(n int64)
}

func (c *countingCodec) Parse(template []byte) (domain.Document, error) {
	n := c.parses.Add(1)
	if c.hook != nil {
		c.hook(n)
	}
	return c.inner.Parse(template)
}

// SessionSuite 批处理会话测试
type SessionSuite struct {
	suite.Suite

	codec    *countingCodec
	session  *Session
	template []byte
	columns  []string
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.codec = &countingCodec{inner: docx.NewCodec()}
	s.session = NewSession(NewRunner(s.codec, nil, 4, nil), NewBatchCache(0), nil)
	s.template = testutil.BuildDocx(s.T(),
		"<w:p>"+testutil.PlainRun("姓名：")+testutil.BoldRun("【姓名】")+"</w:p>"+
			testutil.Table([][]string{{"金额", "【金额】"}}))
	s.columns = []string{"姓名", "金额", "日期"}
}

func (s *SessionSuite) rules() []domain.ReplacementRule {
	return []domain.ReplacementRule{
		{Keyword: "【姓名】", SourceField: "姓名"},
		{Keyword: "【金额】", SourceField: "金额"},
		{Keyword: "【日期】", SourceField: "日期"},
	}
}

func (s *SessionSuite) job(rows ...domain.DataRow) *Job {
	return &Job{
		Template:     s.template,
		TemplateName: "合同模板.docx",
		Columns:      s.columns,
		Rows:         rows,
		Rules:        s.rules(),
		Scope:        domain.FullKeyword,
		StartRow:     1,
		Naming:       domain.NamingConfig{Column: "姓名"},
	}
}

func (s *SessionSuite) row(values ...string) domain.DataRow {
	return domain.NewDataRow(s.columns, values)
}

func (s *SessionSuite) manyRows(n int) []domain.DataRow {
	rows := make([]domain.DataRow, n)
	for i := range rows {
		rows[i] = s.row(fmt.Sprintf("用户%02d", i+1), fmt.Sprintf("%d.5", i), "2024-01-01")
	}
	return rows
}

func (s *SessionSuite) TestRun_ReplacesAndNames() {
	result, err := s.session.Run(context.Background(), s.job(s.row("张三", "0.48729999999999996", "2024-01-01")))
	s.Require().NoError(err)

	s.Equal(Completed, result.State)
	s.Equal(Completed, s.session.State())
	s.Require().Len(result.Artifacts, 1)

	artifact := result.Artifacts[0]
	s.Equal("张三.docx", artifact.Filename)
	s.Equal(1, artifact.SourceRowIndex)
	s.False(artifact.Failed)

	xml := testutil.DocumentXML(s.T(), artifact.Payload)
	s.Contains(xml, "姓名：张三")
	s.Contains(xml, "0.4873")
	s.NotContains(xml, "【姓名】")
}

func (s *SessionSuite) TestRun_OrderingWithParallelWorkers() {
	job := s.job(s.manyRows(30)...)
	job.StartRow = 5
	job.EndRow = 24

	result, err := s.session.Run(context.Background(), job)
	s.Require().NoError(err)

	s.Len(result.Artifacts, 24-5+1)
	for i, a := range result.Artifacts {
		s.Equal(5+i, a.SourceRowIndex)
		s.Equal(fmt.Sprintf("用户%02d.docx", 5+i), a.Filename)
	}
	s.EqualValues(20, s.codec.parses.Load())
}

func (s *SessionSuite) TestRun_EndRowClipped() {
	job := s.job(s.manyRows(3)...)
	job.StartRow = 2
	job.EndRow = 99

	result, err := s.session.Run(context.Background(), job)
	s.Require().NoError(err)
	s.Len(result.Artifacts, 2)
	s.Equal(3, result.Artifacts[1].SourceRowIndex)
}

func (s *SessionSuite) TestRun_PartialFailure() {
	broken := domain.NewDataRow([]string{"姓名", "日期"}, []string{"李四", "2024-02-02"})
	job := s.job(s.row("张三", "1", "x"), broken, s.row("王五", "2", "y"))

	result, err := s.session.Run(context.Background(), job)
	s.Require().NoError(err)

	s.Equal(PartiallyFailed, result.State)
	s.Equal(1, result.Failed)
	s.Require().Len(result.Artifacts, 3)

	failed := result.Artifacts[1]
	s.True(failed.Failed)
	s.Empty(failed.Payload)
	s.Equal("李四.docx", failed.Filename)
	s.Contains(failed.Log, "RuleError")

	s.False(result.Artifacts[0].Failed)
	s.False(result.Artifacts[2].Failed)
	s.Equal("1 of 3 rows failed", result.Summary())
}

func (s *SessionSuite) TestRun_ParseErrorIsRowLocal() {
	job := s.job(s.row("张三", "1", "x"), s.row("李四", "2", "y"))
	job.Template = []byte("不是docx")

	result, err := s.session.Run(context.Background(), job)
	s.Require().NoError(err)

	s.Equal(2, result.Failed)
	for _, a := range result.Artifacts {
		s.True(a.Failed)
		s.Contains(a.Log, "ParseError")
	}
}

func (s *SessionSuite) TestRun_NoMatchKeepsTemplate() {
	template := testutil.BuildDocx(s.T(), testutil.Para("没有任何关键词"))
	job := s.job(s.row("张三", "1", "x"))
	job.Template = template

	result, err := s.session.Run(context.Background(), job)
	s.Require().NoError(err)

	s.Equal(template, result.Artifacts[0].Payload)
	s.Equal("no keyword matched.", result.Artifacts[0].Log)
}

func (s *SessionSuite) TestRun_CacheHitAndInvalidation() {
	job := s.job(s.manyRows(3)...)

	first, err := s.session.Run(context.Background(), job)
	s.Require().NoError(err)
	s.False(first.FromCache)
	s.EqualValues(3, s.codec.parses.Load())

	second, err := s.session.Run(context.Background(), s.job(s.manyRows(3)...))
	s.Require().NoError(err)
	s.True(second.FromCache)
	s.Equal(first.Artifacts, second.Artifacts)
	s.EqualValues(3, s.codec.parses.Load())

	changed := s.job(s.manyRows(3)...)
	changed.Rules = changed.Rules[:2]
	third, err := s.session.Run(context.Background(), changed)
	s.Require().NoError(err)
	s.False(third.FromCache)
	s.EqualValues(6, s.codec.parses.Load())

	s.session.Invalidate()
	_, err = s.session.Run(context.Background(), changed)
	s.Require().NoError(err)
	s.EqualValues(9, s.codec.parses.Load())
}

func (s *SessionSuite) TestRun_CachedResultIsIsolated() {
	first, err := s.session.Run(context.Background(), s.job(s.manyRows(2)...))
	s.Require().NoError(err)
	want := first.Artifacts[0].Filename
	wantPayload := append([]byte(nil), first.Artifacts[0].Payload...)

	first.Artifacts[0].Filename = "改过.docx"
	first.Artifacts[0].Payload[0] ^= 0xff

	second, err := s.session.Run(context.Background(), s.job(s.manyRows(2)...))
	s.Require().NoError(err)
	s.Require().True(second.FromCache)
	s.Equal(want, second.Artifacts[0].Filename)
	s.Equal(wantPayload, second.Artifacts[0].Payload)

	second.Artifacts[1].Log = "改过"
	third, err := s.session.Run(context.Background(), s.job(s.manyRows(2)...))
	s.Require().NoError(err)
	s.NotEqual("改过", third.Artifacts[1].Log)
}

// brokenCodec 返回不属于错误分类的错误
type brokenCodec struct{}

func (brokenCodec) Parse([]byte) (domain.Document, error) {
	return nil, errors.New("磁盘读取中断")
}

func (s *SessionSuite) TestRun_UnknownCodecErrorIsRowProcessing() {
	session := NewSession(NewRunner(brokenCodec{}, nil, 1, nil), NewBatchCache(0), nil)

	result, err := session.Run(context.Background(), s.job(s.row("张三", "1", "x")))
	s.Require().NoError(err)
	s.Require().Len(result.Artifacts, 1)
	s.True(result.Artifacts[0].Failed)
	s.Contains(result.Artifacts[0].Log, "replacement failed [RowProcessingError]")
	s.Contains(result.Artifacts[0].Log, "磁盘读取中断")
}

func (s *SessionSuite) TestRun_ScopeAndNamingChangeFingerprint() {
	base := s.job(s.manyRows(2)...)
	fp := Fingerprint(base, 1, 2)

	scoped := s.job(s.manyRows(2)...)
	scoped.Scope = domain.BracketContentOnly
	s.NotEqual(fp, Fingerprint(scoped, 1, 2))

	named := s.job(s.manyRows(2)...)
	named.Naming.Prefix = "A_"
	s.NotEqual(fp, Fingerprint(named, 1, 2))

	s.NotEqual(fp, Fingerprint(base, 2, 2))

	reordered := s.job(s.manyRows(2)...)
	reordered.Rules[0], reordered.Rules[1] = reordered.Rules[1], reordered.Rules[0]
	s.NotEqual(fp, Fingerprint(reordered, 1, 2))

	s.Equal(fp, Fingerprint(s.job(s.manyRows(2)...), 1, 2))
}

func (s *SessionSuite) TestRun_BatchFatalErrors() {
	empty := s.job(s.row("张三", "1", "x"))
	empty.Rules = nil
	_, err := s.session.Run(context.Background(), empty)
	s.True(errors.Is(err, domain.ErrEmptyRules))

	_, err = s.session.Run(context.Background(), s.job())
	s.True(errors.Is(err, domain.ErrDataset))

	for _, r := range [][2]int{{0, 0}, {3, 0}, {2, 1}} {
		job := s.job(s.row("张三", "1", "x"), s.row("李四", "2", "y"))
		job.StartRow, job.EndRow = r[0], r[1]
		_, err = s.session.Run(context.Background(), job)
		s.True(errors.Is(err, domain.ErrInvalidRange), "range %v", r)
	}

	badName := s.job(s.row("张三", "1", "x"))
	badName.Naming.Expression = "("
	_, err = s.session.Run(context.Background(), badName)
	s.True(errors.Is(err, domain.ErrInvalidConfig))

	s.EqualValues(0, s.codec.parses.Load())
	s.Equal(Idle, s.session.State())
}

func (s *SessionSuite) TestRun_BusyWhileRunning() {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s.codec.hook = func(int64) {
		once.Do(func() { close(entered) })
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.session.Run(context.Background(), s.job(s.row("张三", "1", "x")))
		done <- err
	}()

	<-entered
	s.Equal(Running, s.session.State())
	_, err := s.session.Run(context.Background(), s.job(s.row("李四", "2", "y")))
	s.True(errors.Is(err, domain.ErrBusy))

	close(release)
	s.NoError(<-done)
	s.Equal(Completed, s.session.State())
}

func (s *SessionSuite) TestRun_CancelStopsLaunchingRows() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.session = NewSession(NewRunner(s.codec, nil, 1, nil), nil, nil)
	s.codec.hook = func(n int64) {
		if n == 1 {
			cancel()
		}
	}

	result, err := s.session.Run(ctx, s.job(s.manyRows(5)...))
	s.Require().NoError(err)

	s.Equal(PartiallyFailed, result.State)
	s.Require().Len(result.Artifacts, 1)
	s.Equal(1, result.Artifacts[0].SourceRowIndex)
	s.False(result.Artifacts[0].Failed)
	s.Equal(4, result.Skipped)
	s.Equal("0 of 5 rows failed, 4 skipped", result.Summary())

	// 被取消的结果不进入缓存
	_, err = s.session.Run(context.Background(), s.job(s.manyRows(5)...))
	s.Require().NoError(err)
	s.EqualValues(6, s.codec.parses.Load())
}

func (s *SessionSuite) TestRun_BracketContentOnly() {
	job := s.job(s.row("张三", "1", "x"))
	job.Scope = domain.BracketContentOnly

	result, err := s.session.Run(context.Background(), job)
	s.Require().NoError(err)

	xml := testutil.DocumentXML(s.T(), result.Artifacts[0].Payload)
	s.Contains(xml, "姓名：【张三】")
}

func (s *SessionSuite) TestResult_LogGolden() {
	broken := domain.NewDataRow([]string{"姓名", "日期"}, []string{"李四", "2024-02-02"})
	job := s.job(
		s.row("张三", "0.48729999999999996", "2024-01-01"),
		broken,
		s.row("王五", "10.500", "2024-03-03"),
	)

	result, err := s.session.Run(context.Background(), job)
	s.Require().NoError(err)

	g := goldie.New(s.T(),
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(s.T(), "batch_log", []byte(result.Log()))
}
