package node

import "unicode/utf8"

// RuneLen 字符数（按 rune 计）
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// TruncateByRunes 截断到 maxRunes 个字符
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// SplitByRunes 按 size 个字符切分为连续不重叠的片段，末段可能更短
func SplitByRunes(s string, size int) []string {
	if s == "" {
		return nil
	}
	if size <= 0 {
		return []string{s}
	}

	parts := make([]string, 0, utf8.RuneCountInString(s)/size+1)
	start, n := 0, 0
	for i := range s {
		if n == size {
			parts = append(parts, s[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(parts, s[start:])
}
