package wecom

import (
	"fmt"
	"strings"
	"time"

	"github.com/moetools/moepush/internal/moemail"
	"github.com/moetools/moepush/internal/textutil"
)

const (
	// previewMaxRunes caps the content preview in characters, not bytes.
	previewMaxRunes = 500
	// messageMaxBytes is the bot platform's limit for one text message.
	messageMaxBytes = 1800
)

// TextMessage is the minimal WeCom bot text-message envelope.
type TextMessage struct {
	MsgType string      `json:"msgtype"`
	Text    TextContent `json:"text"`
}

// TextContent holds the message body.
type TextContent struct {
	Content string `json:"content"`
}

// Notifications are always rendered in China time, no matter where the relay
// runs; the bot's audience is fixed.
var shanghai = loadShanghai()

func loadShanghai() *time.Location {
	if loc, err := time.LoadLocation("Asia/Shanghai"); err == nil {
		return loc
	}
	return time.FixedZone("CST", 8*60*60)
}

// BuildNotification renders a new-mail notification as a bot text message.
// Plain-text content wins over HTML; HTML is normalized first. The preview is
// capped at 500 characters with an ellipsis, and the whole message is re-cut
// to 1800 encoded bytes, mid-sentence if it has to be.
func BuildNotification(n moemail.Notification) TextMessage {
	subject := n.Subject
	if subject == "" {
		subject = "无主题"
	}

	body := n.Content
	if body == "" {
		body = textutil.NormalizeHTML(n.HTML)
	}

	preview := body
	runes := []rune(body)
	overflow := len(runes) > previewMaxRunes
	if overflow {
		preview = string(runes[:previewMaxRunes])
	}
	if preview == "" {
		preview = "无可展示内容"
	}

	to := n.ToAddress
	if to == "" {
		to = "未知"
	}
	from := n.FromAddress
	if from == "" {
		from = "未知"
	}

	var b strings.Builder
	b.WriteString("【新邮件通知】\n")
	fmt.Fprintf(&b, "收件箱: %s\n", to)
	fmt.Fprintf(&b, "发件人: %s\n", from)
	fmt.Fprintf(&b, "主题: %s\n", subject)
	fmt.Fprintf(&b, "时间: %s\n\n", n.ReceivedAt.In(shanghai))
	fmt.Fprintf(&b, "内容预览:\n%s", preview)
	if overflow {
		b.WriteString("...")
	}

	return TextMessage{
		MsgType: "text",
		Text:    TextContent{Content: textutil.TruncateBytes(b.String(), messageMaxBytes)},
	}
}
