package fingerprint

import (
	"strings"

	"golang.org/x/net/html"
)

// shingleSize is the n-gram width used over the tag sequence. Three tags is
// enough local context to distinguish a table from a card grid without making
// small edits ripple through every shingle.
const shingleSize = 3

// DOM computes a SimHash of the page's tag structure, ignoring text and
// attributes. The watcher uses it to spot layout rewrites: when the structure
// fingerprint jumps while the text fingerprint barely moves, the target site
// likely shipped a redesign and the extraction map needs review.
func DOM(htmlStr string) uint64 {
	tags := tagSequence(htmlStr)
	if len(tags) == 0 {
		return 0
	}

	shingles := shingle(tags, shingleSize)
	if len(shingles) == 0 {
		// Too few tags for shingling; fingerprint the bare sequence.
		return Text(strings.Join(tags, " "))
	}
	return Text(strings.Join(shingles, " "))
}

// tagSequence collects open tag names in document order via the tokenizer.
func tagSequence(htmlStr string) []string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	var tags []string
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tags = append(tags, string(name))
		}
	}
}

// shingle builds overlapping n-grams from the token slice.
func shingle(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		out = append(out, strings.Join(tokens[i:i+n], "_"))
	}
	return out
}
