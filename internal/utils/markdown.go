package utils

import (
	"bytes"
	stdhtml "html"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy      = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

func init() {
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown 评论内容渲染成 HTML 并做 XSS 清理
func RenderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return EnhanceHTMLContent(string(policy.SanitizeBytes(buf.Bytes())))
}

// SanitizeText 入库前去掉所有标签，保留文字 (实体还原，避免 & 被存成 &amp;)
func SanitizeText(s string) string {
	return stdhtml.UnescapeString(plainPolicy.Sanitize(s))
}

// SanitizeHTML 允许 UGC 标签的清理
func SanitizeHTML(s string) string {
	return policy.Sanitize(s)
}
