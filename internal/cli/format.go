package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"lead-chat/internal/leadchat"
	"lead-chat/internal/model"

	"github.com/dustin/go-humanize"
)

func parseID(raw, what string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", what, raw)
	}
	return uint(id), nil
}

func authorName(m model.Message) string {
	if m.Author != nil && m.Author.Name != "" {
		return m.Author.Name
	}
	return "user#" + strconv.FormatUint(uint64(m.AuthorID), 10)
}

// printMessage 单行输出一条消息, 附件逐行缩进
func printMessage(w io.Writer, m model.Message, now time.Time) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s: %s", m.ID, humanize.RelTime(m.CreatedAt, now, "ago", "from now"), authorName(m), m.Body)
	if m.Edited {
		b.WriteString(" (edited)")
	}
	fmt.Fprintln(w, b.String())

	for _, a := range m.Attachments {
		fmt.Fprintf(w, "    %s %s (%s) %s\n", leadchat.ClassifyMIME(a.Type), a.Name, leadchat.FormatFileSize(a.Size), a.Path)
	}
}
