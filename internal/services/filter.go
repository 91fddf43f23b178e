package services

import (
	"sort"
	"strings"
	"unicode"

	"startuppush/internal/utils"
)

type ScanResult struct {
	Flagged bool     `json:"flagged"`
	Matches []string `json:"matches"`
}

// Filter 敏感词检查，纯函数，没有状态
type Filter struct {
	words  []string
	phrase map[string]bool
}

func NewFilter(words []string) *Filter {
	f := &Filter{phrase: map[string]bool{}}
	seen := map[string]bool{}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		f.words = append(f.words, w)
		if strings.ContainsFunc(w, unicode.IsSpace) {
			f.phrase[w] = true
		}
	}
	return f
}

// Scan 大小写不敏感。单词按词边界匹配 ("class" 不会命中 "ass")，短语与非拉丁文字按子串匹配
func (f *Filter) Scan(text string) ScanResult {
	res := ScanResult{Matches: []string{}}
	if text == "" || len(f.words) == 0 {
		return res
	}
	lower := strings.ToLower(text)
	tokens := map[string]bool{}
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		tokens[tok] = true
	}

	for _, w := range f.words {
		hit := false
		if f.phrase[w] || !isLatin(w) {
			hit = strings.Contains(lower, w)
		} else {
			hit = tokens[w]
		}
		if hit {
			res.Matches = append(res.Matches, w)
		}
	}
	sort.Strings(res.Matches)
	res.Flagged = len(res.Matches) > 0
	return res
}

// ScanHTML 先取出可见文本再检查
func (f *Filter) ScanHTML(html string) ScanResult {
	return f.Scan(utils.PlainText(html))
}

func isLatin(s string) bool {
	for _, r := range s {
		if r > unicode.MaxLatin1 {
			return false
		}
	}
	return true
}
