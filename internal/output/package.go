package output

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/allanpk716/docx_filler/internal/domain"
)

// ArchiveName 压缩包名称：<prefix>batch_result_<count>.zip
func ArchiveName(prefix string, count int) string {
	return Sanitize(prefix + "batch_result_" + strconv.Itoa(count) + ".zip")
}

// Successful 返回未失败的结果，保持顺序
func Successful(artifacts []domain.OutputArtifact) []domain.OutputArtifact {
	ok := make([]domain.OutputArtifact, 0, len(artifacts))
	for _, a := range artifacts {
		if !a.Failed {
			ok = append(ok, a)
		}
	}
	return ok
}

// Pack 把所有成功的结果打包成 ZIP。
// 文件名相同时后写入的内容覆盖先写入的，条目位置保持第一次出现的位置。
func Pack(artifacts []domain.OutputArtifact) ([]byte, error) {
	var order []string
	payloads := make(map[string][]byte)
	for _, a := range Successful(artifacts) {
		if _, seen := payloads[a.Filename]; !seen {
			order = append(order, a.Filename)
		}
		payloads[a.Filename] = a.Payload
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := time.Now()
	for _, name := range order {
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		}
		// 文件名按 UTF-8 编码
		header.Flags |= 0x800
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("创建压缩条目 %s 失败: %w", name, err)
		}
		if _, err := w.Write(payloads[name]); err != nil {
			return nil, fmt.Errorf("写入压缩条目 %s 失败: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("关闭压缩包失败: %w", err)
	}
	return buf.Bytes(), nil
}

// Bundle 返回可直接交付的结果：只有一个成功结果时直接返回该文件，否则返回压缩包
func Bundle(artifacts []domain.OutputArtifact, prefix string) (string, []byte, error) {
	ok := Successful(artifacts)
	if len(ok) == 1 {
		return ok[0].Filename, ok[0].Payload, nil
	}
	data, err := Pack(ok)
	if err != nil {
		return "", nil, err
	}
	return ArchiveName(prefix, len(ok)), data, nil
}
