package netutil

import "regexp"

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// RedactToken masks Bot API tokens embedded in URLs or error text.
func RedactToken(s string) string {
	return tokenRe.ReplaceAllString(s, "bot<redacted>")
}
