package util

import "strings"

const (
	// SeeMorePadding zero-width spaces push everything after the first line
	// behind KakaoTalk's "전체보기" fold.
	SeeMorePadding = 500
	ZeroWidthSpace = "\u200b"
)

// SeeMore folds text under header: the header stays visible in the chat
// preview and the body opens with "전체보기". A copy of header already at the
// top of text is dropped so it is not shown twice. Blank text is returned as is.
func SeeMore(text, header string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	header = strings.TrimSpace(header)
	body := trimHeader(text, header)

	var sb strings.Builder
	sb.Grow(len(header) + len(ZeroWidthSpace)*SeeMorePadding + len(body) + 1)
	sb.WriteString(header)
	sb.WriteString(strings.Repeat(ZeroWidthSpace, SeeMorePadding))
	if !strings.HasPrefix(body, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString(body)
	return sb.String()
}

func trimHeader(text, header string) string {
	if header == "" || !strings.HasPrefix(text, header) {
		return text
	}
	rest := strings.TrimPrefix(text, header)
	rest = strings.TrimPrefix(rest, "\r")
	return strings.TrimLeft(strings.TrimPrefix(rest, "\n"), "\r\n")
}
