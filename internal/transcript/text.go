package transcript

import (
	"strings"
	"unicode"

	"pryd/internal/ocr"
)

// uiNoise lists interface strings OCR keeps picking up that are never
// message content.
var uiNoise = map[string]struct{}{
	"微信":       {},
	"WeChat":   {},
	"QQ":       {},
	"文件传输助手":   {},
	"订阅号":      {},
	"通讯录":      {},
	"收藏":       {},
	"聊天文件":     {},
	"朋友圈":      {},
	"视频号":      {},
	"发送":       {},
	"Send":     {},
	"按住说话":     {},
	"表情":       {},
	"搜索":       {},
	"Search":   {},
	"消息免打扰":    {},
	"置顶聊天":     {},
	"群聊名称":     {},
	"全部":       {},
	"正在输入...": {},
}

// normalizeText strips zero-width characters and collapses runs of
// whitespace to single spaces.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		switch {
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\ufeff':
			continue
		case unicode.IsSpace(r):
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// canonicalText reduces a message to its dedupe form: lowercased, with
// everything that is not a letter or digit removed.
func canonicalText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isMeaningful reports whether text looks like actual message content:
// it needs CJK characters, at least two letters, or at least three
// digits, and must not be all punctuation or symbols.
func isMeaningful(s string) bool {
	letters, digits, symbols, total := 0, 0, 0, 0
	hasCJK := false

	for _, r := range s {
		total++
		switch {
		case unicode.Is(unicode.Han, r):
			hasCJK = true
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbols++
		}
	}

	if total == 0 || symbols == total {
		return false
	}
	return hasCJK || letters >= 2 || digits >= 3
}

// systemNoticeMarkers appear in client-injected notices shown centered
// in the transcript.
var systemNoticeMarkers = []string{
	"撤回了一条消息",
	"加入了群聊",
	"退出了群聊",
	"邀请",
	"修改了群名",
	"领取了你的红包",
	"发起了视频通话",
	"通话时长",
	"已添加",
	"开启了朋友验证",
}

// isSystemNotice reports whether centered text matches a known
// client notice pattern.
func isSystemNotice(s string) bool {
	for _, marker := range systemNoticeMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// looksLikeTimestamp matches the centered time markers chat clients
// inject between bubbles, e.g. "14:32", "昨天 09:15", "星期三".
func looksLikeTimestamp(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}

	for _, prefix := range []string{"昨天", "今天", "前天", "星期", "周", "上午", "下午", "凌晨", "晚上"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}

	// Bare clock time: digits and separators only.
	clock := true
	digits := 0
	for _, r := range trimmed {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == ':' || r == '-' || r == '/' || r == ' ' || r == '.':
		default:
			clock = false
		}
		if !clock {
			break
		}
	}
	return clock && digits >= 3
}

// ContactName picks the conversation title out of title-bar OCR lines:
// the largest plausible line that is not UI chrome, with member counts
// like "张三 (12)" trimmed to the bare name.
func ContactName(lines []ocr.TextLine) string {
	best := ""
	bestArea := 0

	for _, l := range lines {
		text := normalizeText(l.Text)
		if text == "" {
			continue
		}
		if _, noise := uiNoise[text]; noise {
			continue
		}
		if looksLikeTimestamp(text) {
			continue
		}

		area := l.Box.Dx() * l.Box.Dy()
		if area > bestArea {
			best, bestArea = text, area
		}
	}

	if i := strings.IndexAny(best, "(（"); i > 0 {
		best = strings.TrimSpace(best[:i])
	}
	return best
}
