package transform

import (
	"slices"
	"strings"

	"ir-api/internal/shared/model"
)

// ============================================================================
// MARI
// ============================================================================

// mariKeys 按顺序匹配，第一个匹配的 key 生效
var mariKeys = []string{"runno", "sum_runs", "ei", "wbvan", "monovan", "sam_mass", "sam_rmm", "remove_bkg"}

const mariMaskPlaceholder = "url_to_mask_file.xml"

// Mari MARI 转换
//
// 输入：runno, sum_runs, ei, wbvan, monovan, sam_mass, sam_rmm, remove_bkg, mask_file_link
func Mari(lines []string, inputs model.ReductionInputs) []string {
	for i, line := range lines {
		if strings.Contains(line, mariMaskPlaceholder) {
			if link, ok := inputs.Lookup("mask_file_link"); ok {
				lines[i] = strings.ReplaceAll(line, mariMaskPlaceholder, Literal(link))
			}
			continue
		}
		for _, key := range mariKeys {
			v, ok := inputs.Lookup(key)
			if replaced, matched := assign(line, key, v, ok); matched {
				lines[i] = replaced
				break
			}
		}
	}
	return lines
}

// ============================================================================
// TOSCA
// ============================================================================

const (
	toscaInputRunsLine = `input_runs = ["25240", "25241"]`
	toscaCycleLine     = `cycle = "cycle_19_4"`
)

// Tosca TOSCA 转换
//
// 输入：input_runs（列表）, cycle_string。替换 cycle 行后不再处理后续行。
func Tosca(lines []string, inputs model.ReductionInputs) []string {
	for i, line := range lines {
		if line == toscaInputRunsLine {
			if runs, ok := inputs.Lookup("input_runs"); ok {
				if l, ok := toscaInputRuns(runs); ok {
					lines[i] = l
				}
			}
			continue
		}
		if line == toscaCycleLine {
			if cycle, ok := inputs.Lookup("cycle_string"); ok {
				lines[i] = `cycle = "` + Literal(cycle) + `"`
			}
			break
		}
	}
	return lines
}

// toscaInputRuns 生成 input_runs = ["1", "2"]
func toscaInputRuns(v any) (string, bool) {
	items, ok := v.([]any)
	if !ok {
		return "", false
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = `"` + Literal(item) + `"`
	}
	return "input_runs = [" + strings.Join(quoted, ", ") + "]", true
}

// ============================================================================
// OSIRIS
// ============================================================================

// Osiris OSIRIS 转换
//
// 输入：runno, cycle_string, analyser, mode（both / spectroscopy / diffraction）
func Osiris(lines []string, inputs model.ReductionInputs) []string {
	runno, hasRunno := inputs.Lookup("runno")
	if hasRunno {
		runno = osirisInputRuns(runno)
	}
	cycle, hasCycle := inputs.Lookup("cycle_string")
	analyser, hasAnalyser := inputs.Lookup("analyser")
	mode, hasMode := inputs.Lookup("mode")

	rules := []struct {
		key   string
		value any
		ok    bool
	}{
		{"input_runs", runno, hasRunno},
		{"cycle", cycle, hasCycle},
		{"reflection", analyser, hasAnalyser},
		{"spectroscopy_reduction", pyBool(mode == "both" || mode == "spectroscopy"), hasMode},
		{"diffraction_reduction", pyBool(mode == "both" || mode == "diffraction"), hasMode},
	}

	for i, line := range lines {
		for _, rule := range rules {
			if replaced, matched := assign(line, rule.key, rule.value, rule.ok); matched {
				lines[i] = replaced
				break
			}
		}
	}
	return lines
}

// osirisInputRuns 列表和字符串原样输出，单个数值包成列表
func osirisInputRuns(v any) any {
	switch v.(type) {
	case []any, string, map[string]any:
		return v
	default:
		return "[" + Literal(v) + "]"
	}
}

// pyBool 返回 True / False 文本
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ============================================================================
// TEST
// ============================================================================

const testHeader = "# This line is inserted via test"

// Test 测试仪器转换：删除 print 行，x 赋值改为 22，首行插入标记注释
//
// 删除一行后下标照常前进，紧随其后的一行不做检查，原样保留。
func Test(lines []string, _ model.ReductionInputs) []string {
	out := make([]string, 0, len(lines)+1)
	out = append(out, testHeader)
	out = append(out, lines...)
	for i := 1; i < len(out); i++ {
		switch {
		case strings.HasPrefix(out[i], "print"):
			out = slices.Delete(out, i, i+1)
		case strings.HasPrefix(out[i], "x ="):
			out[i] = "x = 22"
		}
	}
	return out
}
