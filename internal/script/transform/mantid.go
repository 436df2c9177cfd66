package transform

import (
	"os"
	"strings"

	"ir-api/internal/shared/model"
)

// DefaultTokenEnv 注入 token 的环境变量名
const DefaultTokenEnv = "GITHUB_API_TOKEN"

const futureImportPrefix = "from __future"

// Mantid 通用后置转换
//
// 保持 future import 行在最前，随后插入 ConfigService 的 GitHub token 配置。
// token 在每次转换时从环境变量读取，未设置时为空字符串。
type Mantid struct {
	tokenEnv string
}

var _ Transform = (*Mantid)(nil)

// NewMantid 创建读取 GITHUB_API_TOKEN 的 Mantid 转换
func NewMantid() *Mantid {
	return &Mantid{tokenEnv: DefaultTokenEnv}
}

// Apply 实现 Transform
func (m *Mantid) Apply(lines []string, _ model.ReductionInputs) []string {
	var future, rest []string
	for _, line := range lines {
		if strings.HasPrefix(line, futureImportPrefix) {
			future = append(future, line)
		} else {
			rest = append(rest, line)
		}
	}

	out := make([]string, 0, len(lines)+2)
	out = append(out, future...)
	out = append(out,
		"from mantid.kernel import ConfigService",
		`ConfigService.Instance()["network.github.api_token"] = "`+os.Getenv(m.tokenEnv)+`"`,
	)
	return append(out, rest...)
}
