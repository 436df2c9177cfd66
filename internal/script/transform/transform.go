// Package transform 脚本转换
//
// 每台仪器至多一个专用转换，按小写仪器名登记在 Registry 中。
// 转换是行上的纯函数：输入行序列与 Reduction 输入参数，输出新的行序列。
// 专用转换之后总是执行一次通用的 Mantid 转换。
package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/containerd/errdefs"

	"ir-api/internal/shared/model"
	"ir-api/pkg/logging"
)

// ErrMissingTransform 仪器没有登记转换
var ErrMissingTransform = fmt.Errorf("missing transform: %w", errdefs.ErrInternal)

// Transform 行转换接口
type Transform interface {
	Apply(lines []string, inputs model.ReductionInputs) []string
}

// Func 函数形式的 Transform
type Func func(lines []string, inputs model.ReductionInputs) []string

// Apply 实现 Transform
func (f Func) Apply(lines []string, inputs model.ReductionInputs) []string {
	return f(lines, inputs)
}

// Registry 仪器名到转换的映射
type Registry struct {
	transforms map[string]Transform
	common     Transform
	logger     *logging.Logger
}

// NewRegistry 创建带默认转换的 Registry
func NewRegistry() *Registry {
	r := &Registry{
		transforms: map[string]Transform{},
		common:     NewMantid(),
		logger:     logging.Default("transform"),
	}
	r.Register("mari", Func(Mari))
	r.Register("tosca", Func(Tosca))
	r.Register("osiris", Func(Osiris))
	r.Register("test", Func(Test))
	return r
}

// Register 登记转换，同名覆盖
func (r *Registry) Register(instrument string, t Transform) {
	r.transforms[strings.ToLower(instrument)] = t
}

// SetCommon 替换通用后置转换
func (r *Registry) SetCommon(t Transform) {
	r.common = t
}

// Names 返回已登记的仪器名（小写，有序）
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// For 返回仪器对应的转换，未登记时返回 ErrMissingTransform
func (r *Registry) For(instrument string) (Transform, error) {
	t, ok := r.transforms[strings.ToLower(instrument)]
	if !ok {
		return nil, fmt.Errorf("no transform for instrument %s: %w", instrument, ErrMissingTransform)
	}
	return t, nil
}

// Apply 对脚本依次执行仪器转换和通用转换，只修改 script.Value
func (r *Registry) Apply(instrument string, script *model.PreScript, reduction *model.Reduction) error {
	t, err := r.For(instrument)
	if err != nil {
		return err
	}

	start := time.Now()
	logger := r.logger.WithInstrument(instrument).WithReductionID(reduction.ID)
	logger.Info("Applying transform")

	script.Value = applyTo(t, script.Value, reduction.ReductionInputs)
	if r.common != nil {
		script.Value = applyTo(r.common, script.Value, reduction.ReductionInputs)
	}

	logger.WithDuration(time.Since(start)).Info("Transform complete")
	return nil
}

// applyTo 拆行、转换、合并
func applyTo(t Transform, value string, inputs model.ReductionInputs) string {
	return JoinLines(t.Apply(SplitLines(value), inputs))
}

// assign 行以 key 开头时改写为 "key = <value>"
//
// matched 表示该行以 key 开头；输入中没有 key 时该行保持不变。
func assign(line, key string, value any, ok bool) (string, bool) {
	if !strings.HasPrefix(line, key) {
		return line, false
	}
	if !ok {
		return line, true
	}
	return key + " = " + Literal(value), true
}
