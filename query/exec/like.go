package exec

// matchLike implements SQL LIKE matching (spec §4.9, §8.1): '%' matches any
// run of zero or more runes, '_' matches exactly one rune, every other rune
// matches itself literally. Grounded on cqlite-core's match_like_pattern,
// but operating on []rune directly rather than compiling to regexp — the
// original notes regexp's ASCII-centric escaping pitfalls around '_'/'%' as
// its reason to avoid it, which applies here too.
func matchLike(text, pattern string) bool {
	t := []rune(text)
	p := []rune(pattern)
	return likeMatch(t, p)
}

// likeMatch is the classic wildcard-matching backtrack: a '%' remembers its
// position (starPattern/starText) so a later mismatch can retry by
// consuming one more rune of text under that '%' instead of failing
// outright.
func likeMatch(t, p []rune) bool {
	ti, pi := 0, 0
	starPattern, starText := -1, -1

	for ti < len(t) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == t[ti]):
			ti++
			pi++
		case pi < len(p) && p[pi] == '%':
			starPattern = pi
			starText = ti
			pi++
		case starPattern != -1:
			pi = starPattern + 1
			starText++
			ti = starText
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
