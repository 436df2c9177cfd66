package model

// PreScript 请求级别的脚本文本
//
// 每次请求重新获取，Value 由转换流水线改写，
// OriginalValue 在构造后保持不变，用于回写本地缓存和识别获取失败。
type PreScript struct {
	Value    string
	IsLatest bool
	SHA      *string

	original string
}

// NewPreScript 创建 PreScript
func NewPreScript(value string, isLatest bool, sha *string) *PreScript {
	return &PreScript{
		Value:    value,
		IsLatest: isLatest,
		SHA:      sha,
		original: value,
	}
}

// OriginalValue 返回转换前的文本
func (p *PreScript) OriginalValue() string {
	return p.original
}
