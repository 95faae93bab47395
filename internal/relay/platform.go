package relay

import "strings"

// platformFragments is the classification table. Order is part of the
// contract: a URL containing fragments of several platforms gets the tag of
// the earliest row, e.g. "https://x.com/?ref=youtube.com" is YouTube.
var platformFragments = []struct {
	tag       PlatformTag
	fragments []string
}{
	{YouTube, []string{"youtube.com", "youtu.be"}},
	{Instagram, []string{"instagram.com"}},
	{Facebook, []string{"facebook.com", "fb.watch"}},
	{Twitter, []string{"twitter.com", "x.com"}},
	{TikTok, []string{"tiktok.com"}},
	{Pinterest, []string{"pinterest.com"}},
	{LinkedIn, []string{"linkedin.com"}},
	{Snapchat, []string{"snapchat.com"}},
	{Reddit, []string{"reddit.com"}},
	{Twitch, []string{"twitch.tv"}},
}

// Classify maps a URL to its platform by case-insensitive substring match.
// It never fails; unknown URLs are Generic.
func Classify(rawURL string) PlatformTag {
	u := strings.ToLower(rawURL)
	for _, row := range platformFragments {
		for _, f := range row.fragments {
			if strings.Contains(u, f) {
				return row.tag
			}
		}
	}
	return Generic
}

// ParsePlatform returns the tag named by s, case-insensitively.
func ParsePlatform(s string) (PlatformTag, bool) {
	tag := PlatformTag(strings.ToLower(strings.TrimSpace(s)))
	if tag == Generic {
		return tag, true
	}
	for _, row := range platformFragments {
		if row.tag == tag {
			return tag, true
		}
	}
	return "", false
}
