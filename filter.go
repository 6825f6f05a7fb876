package main

import (
	"net/url"
	"regexp"
	"strings"
)

// ReasonCode identifies why a message was rejected by the content filter.
type ReasonCode string

const (
	ReasonProfanity   ReasonCode = "profanity"
	ReasonBlockedLink ReasonCode = "blocked_link"
	ReasonSpamPattern ReasonCode = "spam_pattern"
	ReasonMassMention ReasonCode = "mass_mention"
	ReasonTokenLeak   ReasonCode = "token_leak"
)

// FilterResult is the outcome of classifying one message text. The caller
// decides what to do with it; the relay drops on any non-empty reason set.
type FilterResult struct {
	Allowed bool
	Reasons []ReasonCode
}

// FilterOptions toggles the individual checks. Mass mentions are always
// checked; they are not a per-server setting.
type FilterOptions struct {
	CheckProfanity bool
	CheckLinks     bool
	CheckSpam      bool
	CheckTokens    bool
}

// ContentFilter classifies message text against abuse signatures. It holds
// only compiled patterns and configured word lists, so it is safe for
// concurrent use without synchronization.
type ContentFilter struct {
	urlPattern       *regexp.Regexp
	mentionPattern   *regexp.Regexp
	tokenPattern     *regexp.Regexp
	fakeNitroPattern *regexp.Regexp
	ipPattern        *regexp.Regexp
	lurePatterns     []*regexp.Regexp

	blockedDomains       map[string]struct{}
	profanityWords       []string
	massMentionThreshold int
}

func NewContentFilter(cfg *Config) *ContentFilter {
	f := &ContentFilter{
		// Tolerant of missing schemes: scammers post bare "bit.ly/x" links.
		urlPattern:     regexp.MustCompile(`(?i)\b(?:https?://(?:[0-9]{1,3}\.){3}[0-9]{1,3}|(?:https?://)?(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,})(?::\d+)?(?:/[^\s]*)?`),
		mentionPattern: regexp.MustCompile(`(?i)@(everyone|here)`),
		// Session token grammar: classic bot/user tokens plus mfa tokens.
		tokenPattern:     regexp.MustCompile(`[MN][A-Za-z\d]{23}\.[\w-]{6}\.[\w-]{27}|mfa\.[\w-]{84}`),
		fakeNitroPattern: regexp.MustCompile(`(?i)discord(?:\.(?:gift|nitro|app)|app\.com/gifts?)`),
		ipPattern:        regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`),
		lurePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?is)(\bfree|бесплатн).*(nitro|discord)`),
			regexp.MustCompile(`(?is)(\bwin|выигра).*(money|деньг|приз)`),
			regexp.MustCompile(`(?is)(\bclick|кликн|переход).*(link|ссылк)`),
		},
		blockedDomains:       make(map[string]struct{}, len(cfg.BlockedDomains)),
		massMentionThreshold: cfg.MassMentionThreshold,
	}

	for _, d := range cfg.BlockedDomains {
		f.blockedDomains[strings.ToLower(d)] = struct{}{}
	}
	for _, w := range cfg.ProfanityWords {
		f.profanityWords = append(f.profanityWords, strings.ToLower(w))
	}

	return f
}

// Classify runs every enabled check and aggregates all triggered reasons.
func (f *ContentFilter) Classify(text string, opts FilterOptions) FilterResult {
	if text == "" {
		return FilterResult{Allowed: true}
	}

	var reasons []ReasonCode

	if opts.CheckProfanity && f.ContainsProfanity(text) {
		reasons = append(reasons, ReasonProfanity)
	}
	if opts.CheckLinks && f.ContainsBlockedLinks(text) {
		reasons = append(reasons, ReasonBlockedLink)
	}
	if opts.CheckSpam && f.IsSpamPattern(text) {
		reasons = append(reasons, ReasonSpamPattern)
	}
	if f.ContainsMassMentions(text) {
		reasons = append(reasons, ReasonMassMention)
	}
	if opts.CheckTokens && f.ContainsSessionToken(text) {
		reasons = append(reasons, ReasonTokenLeak)
	}

	return FilterResult{Allowed: len(reasons) == 0, Reasons: reasons}
}

// ContainsProfanity matches case-insensitively against the configured word
// list. An empty list always passes.
func (f *ContentFilter) ContainsProfanity(text string) bool {
	if len(f.profanityWords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, word := range f.profanityWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// ContainsBlockedLinks extracts every URL from the text and reports whether
// any of them looks malicious.
func (f *ContentFilter) ContainsBlockedLinks(text string) bool {
	for _, u := range f.urlPattern.FindAllString(text, -1) {
		if f.isSuspiciousURL(u) {
			return true
		}
	}
	return false
}

// isSuspiciousURL checks a single URL against the domain blocklist and a set
// of heuristics. A URL that fails to parse is treated as safe (fail-open).
func (f *ContentFilter) isSuspiciousURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if !strings.Contains(lower, "://") {
		lower = "http://" + lower
	}

	parsed, err := url.Parse(lower)
	if err != nil {
		ErrorLogger.Printf("Failed to parse URL %q, treating as safe: %v", rawURL, err)
		return false
	}

	domain := strings.TrimPrefix(parsed.Hostname(), "www.")
	if domain == "" {
		return false
	}

	if _, blocked := f.blockedDomains[domain]; blocked {
		return true
	}
	for blocked := range f.blockedDomains {
		if strings.HasSuffix(domain, "."+blocked) {
			return true
		}
	}

	// Fake gift/nitro lure anywhere in the URL.
	if f.fakeNitroPattern.MatchString(lower) {
		return true
	}

	// Bare IPv4 literal instead of a hostname.
	if f.ipPattern.MatchString(domain) {
		return true
	}

	// Short hostnames with digits are a common shortener/logger shape.
	if len(domain) < 6 && strings.ContainsAny(domain, "0123456789") {
		return true
	}

	path := strings.ToLower(parsed.Path)
	for _, keyword := range []string{"/logger", "/grab", "/track", "/ip"} {
		if strings.Contains(path, keyword) {
			return true
		}
	}

	return false
}

// IsSpamPattern detects repeated-character floods, short repeated substrings
// and templated lure phrases.
func (f *ContentFilter) IsSpamPattern(text string) bool {
	lower := strings.ToLower(text)

	if hasRuneRun(lower, 11) {
		return true
	}
	if hasRepeatedUnit(lower, 5, 6) {
		return true
	}
	for _, p := range f.lurePatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// ContainsMassMentions counts @everyone/@here tokens against the threshold.
func (f *ContentFilter) ContainsMassMentions(text string) bool {
	mentions := f.mentionPattern.FindAllString(text, -1)
	return len(mentions) >= f.massMentionThreshold
}

// ContainsSessionToken reports whether the text leaks a session token.
func (f *ContentFilter) ContainsSessionToken(text string) bool {
	return f.tokenPattern.MatchString(text)
}

// ExtractURLs returns every URL found in the text.
func (f *ContentFilter) ExtractURLs(text string) []string {
	return f.urlPattern.FindAllString(text, -1)
}

// hasRuneRun reports a run of the same rune of at least minRun length.
// Backreferences are unavailable in RE2, so runs are scanned directly.
func hasRuneRun(text string, minRun int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= minRun {
			return true
		}
	}
	return false
}

// hasRepeatedUnit reports a substring of length 1..maxUnit occurring at
// least minCount times consecutively.
func hasRepeatedUnit(text string, maxUnit, minCount int) bool {
	n := len(text)
	for unit := 1; unit <= maxUnit; unit++ {
		if unit*minCount > n {
			break
		}
		for start := 0; start+unit*minCount <= n; start++ {
			count := 1
			for start+unit*(count+1) <= n &&
				text[start:start+unit] == text[start+unit*count:start+unit*(count+1)] {
				count++
				if count >= minCount {
					return true
				}
			}
		}
	}
	return false
}
