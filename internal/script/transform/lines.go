package transform

import "strings"

// SplitLines 按行拆分脚本，识别 \n、\r\n 与 \r
//
// 末尾换行不会产生空行，空字符串返回空切片。
func SplitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines 以 \n 连接，结果不带末尾换行
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
