package bot

import (
	"regexp"
	"strconv"
	"strings"
)

var postLinkRe = regexp.MustCompile(`(?:https?://)?t\.me/(?:c/)?([^/\s]+)/(\d+)`)

// parseLink extracts the channel slug and message id from a t.me post link.
// Private channel links (t.me/c/<id>/<msg>) yield the numeric channel id as slug.
func parseLink(text string) (string, int, bool) {
	m := postLinkRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", 0, false
	}
	msgID, err := strconv.Atoi(m[2])
	if err != nil || msgID <= 0 {
		return "", 0, false
	}
	return m[1], msgID, true
}
