package coach

import "regexp"

// The rewrites are order-sensitive: bullet markers are only recognizable as
// bullets once emphasis pairs have been consumed, and the space collapse
// cleans up what the bullet rewrite leaves behind.
var (
	emphasisPattern    = regexp.MustCompile(`(\s|\b)\*([^*\n]+?)\*(\s|\b)`)
	bulletPattern      = regexp.MustCompile(`(?m)^\* `)
	bulletSpacePattern = regexp.MustCompile(`-\s{2,}`)
)

// PostProcess rewrites the model's markdown-ish emphasis into the markup the
// chat clients render: *word* becomes <b>word</b>, leading "* " bullets
// become "- " bullets, and excess whitespace after a bullet is collapsed.
func PostProcess(text string) string {
	text = emphasisPattern.ReplaceAllString(text, `${1}<b>${2}</b>${3}`)
	text = bulletPattern.ReplaceAllString(text, "- ")
	text = bulletSpacePattern.ReplaceAllString(text, "- ")
	return text
}
