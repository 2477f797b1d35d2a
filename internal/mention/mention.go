// Package mention 解析消息正文中的 @name 标记, 并生成带高亮的安全HTML。
//
// 标记为 '@' 后紧跟一个或多个单词字符。标记与目录中的完整显示名做大小写不敏感的比较,
// 因此包含空格的显示名无法被提及; 存储提及和渲染高亮共用同一匹配规则。
package mention

import (
	"html"
	"regexp"
	"strings"

	"lead-chat/internal/model"
)

var tokenRe = regexp.MustCompile(`@(\w+)`)

// HighlightClass 高亮 span 使用的样式类
const HighlightClass = "mention"

// Lookup 返回与标记匹配的目录条目, 多个大小写变体时取目录中的第一个
func Lookup(token string, directory []model.DirectoryEntry) (model.DirectoryEntry, bool) {
	for _, entry := range directory {
		if strings.EqualFold(entry.Name, token) {
			return entry, true
		}
	}
	return model.DirectoryEntry{}, false
}

// ExtractMentionedUserIDs 返回正文中提及的用户ID集合, 按首次出现顺序去重
func ExtractMentionedUserIDs(text string, directory []model.DirectoryEntry) []uint {
	if !strings.Contains(text, "@") {
		return []uint{}
	}

	ids := make([]uint, 0)
	seen := make(map[uint]struct{})
	for _, match := range tokenRe.FindAllStringSubmatch(text, -1) {
		entry, ok := Lookup(match[1], directory)
		if !ok {
			continue // 未知标记保留为普通文本
		}
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		ids = append(ids, entry.ID)
	}
	return ids
}

// RenderWithHighlights 转义正文并为匹配的标记包裹高亮 span
func RenderWithHighlights(text string, directory []model.DirectoryEntry) string {
	var b strings.Builder
	b.Grow(len(text) + 16)

	last := 0
	for _, loc := range tokenRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		token := text[loc[2]:loc[3]]

		b.WriteString(html.EscapeString(text[last:start]))
		if _, ok := Lookup(token, directory); ok {
			b.WriteString(`<span class="` + HighlightClass + `">`)
			b.WriteString(html.EscapeString(text[start:end]))
			b.WriteString(`</span>`)
		} else {
			b.WriteString(html.EscapeString(text[start:end]))
		}
		last = end
	}
	b.WriteString(html.EscapeString(text[last:]))

	return b.String()
}
