package fingerprint

import (
	"testing"
)

func TestText_IdenticalTexts(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	fp1 := Text(text)
	fp2 := Text(text)

	if fp1 != fp2 {
		t.Errorf("identical texts produced different fingerprints: %064b vs %064b", fp1, fp2)
	}
}

func TestText_SimilarTexts(t *testing.T) {
	text1 := "the quick brown fox jumps over the lazy dog"
	text2 := "the quick brown fox leaps over the lazy dog"

	fp1 := Text(text1)
	fp2 := Text(text2)

	dist := Distance(fp1, fp2)
	if dist > 10 {
		t.Errorf("similar texts have too large distance: %d (fingerprints: %064b, %064b)", dist, fp1, fp2)
	}
}

func TestText_DifferentTexts(t *testing.T) {
	text1 := "the quick brown fox jumps over the lazy dog"
	text2 := "completely unrelated content about quantum physics and mathematics"

	fp1 := Text(text1)
	fp2 := Text(text2)

	dist := Distance(fp1, fp2)
	if dist < 5 {
		t.Errorf("very different texts have too small distance: %d", dist)
	}
}

func TestText_EmptyInput(t *testing.T) {
	fp := Text("")
	if fp != 0 {
		t.Errorf("empty input should produce fingerprint 0, got: %064b", fp)
	}
}

func TestText_WhitespaceOnly(t *testing.T) {
	fp := Text("   \t\n  ")
	if fp != 0 {
		t.Errorf("whitespace-only input should produce fingerprint 0, got: %064b", fp)
	}
}

func TestText_CaseInsensitive(t *testing.T) {
	fp1 := Text("New Tasks Available")
	fp2 := Text("new tasks available")
	if fp1 != fp2 {
		t.Errorf("case should not affect fingerprints: %064b vs %064b", fp1, fp2)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFF, 0xFF, 0},
		{"all different", 0, ^uint64(0), 64},
		{"one bit", 0, 1, 1},
		{"two bits", 0, 3, 2},
		{"zero zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("Distance(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestChanged(t *testing.T) {
	fp1 := Text("tasks available right now apply within the hour")
	fp2 := Text("a totally different page about server maintenance windows")

	if Changed(0, fp2, 3) {
		t.Error("zero previous fingerprint must never report a change")
	}
	if Changed(fp1, fp1, 0) {
		t.Error("identical fingerprints should not report a change")
	}

	dist := Distance(fp1, fp2)
	if !Changed(fp1, fp2, dist-1) {
		t.Errorf("distance %d should exceed threshold %d", dist, dist-1)
	}
	if Changed(fp1, fp2, dist) {
		t.Errorf("distance %d should not exceed threshold %d", dist, dist)
	}
}

func TestDOM_SimilarStructures(t *testing.T) {
	html1 := `<html><head><title>Page 1</title></head><body><div><h1>Hello</h1><p>World</p></div></body></html>`
	html2 := `<html><head><title>Page 2</title></head><body><div><h1>Hi</h1><p>Earth</p></div></body></html>`

	fp1 := DOM(html1)
	fp2 := DOM(html2)

	if fp1 != fp2 {
		dist := Distance(fp1, fp2)
		t.Errorf("identical DOM structures should produce same fingerprint, distance: %d", dist)
	}
}

func TestDOM_DifferentStructures(t *testing.T) {
	html1 := `<html><body><div><h1>Title</h1><p>Text</p><p>More text</p></div></body></html>`
	html2 := `<html><body><table><tr><td>A</td><td>B</td></tr><tr><td>C</td><td>D</td></tr></table></body></html>`

	fp1 := DOM(html1)
	fp2 := DOM(html2)

	dist := Distance(fp1, fp2)
	if dist < 3 {
		t.Errorf("different DOM structures should have larger distance, got: %d", dist)
	}
}

func TestDOM_EmptyHTML(t *testing.T) {
	fp := DOM("")
	if fp != 0 {
		t.Errorf("empty HTML should produce fingerprint 0, got: %064b", fp)
	}
}

func TestDOM_PlainText(t *testing.T) {
	fp := DOM("just some plain text with no tags")
	if fp != 0 {
		t.Errorf("plain text with no tags should produce fingerprint 0, got: %064b", fp)
	}
}

func TestDOM_SingleTag(t *testing.T) {
	fp := DOM("<br/>")
	if fp == 0 {
		t.Error("single self-closing tag should produce non-zero fingerprint")
	}
}

func TestDOM_NestedStructure(t *testing.T) {
	html1 := `<div><div><div><p>Deep</p></div></div></div>`
	html2 := `<div><p>Shallow</p></div>`

	fp1 := DOM(html1)
	fp2 := DOM(html2)

	if fp1 == fp2 {
		t.Error("different nesting depths should produce different fingerprints")
	}
}

func TestTagSequence(t *testing.T) {
	htmlStr := `<html><head><title>Test</title></head><body><div><p>Hello</p></div></body></html>`
	tags := tagSequence(htmlStr)

	expected := []string{"html", "head", "title", "body", "div", "p"}
	if len(tags) != len(expected) {
		t.Fatalf("expected %d tags, got %d: %v", len(expected), len(tags), tags)
	}

	for i, tag := range tags {
		if tag != expected[i] {
			t.Errorf("tag[%d] = %q, want %q", i, tag, expected[i])
		}
	}
}

func TestShingle(t *testing.T) {
	tokens := []string{"a", "b", "c", "d"}

	shingles := shingle(tokens, 3)
	expected := []string{"a_b_c", "b_c_d"}

	if len(shingles) != len(expected) {
		t.Fatalf("expected %d shingles, got %d: %v", len(expected), len(shingles), shingles)
	}

	for i, s := range shingles {
		if s != expected[i] {
			t.Errorf("shingle[%d] = %q, want %q", i, s, expected[i])
		}
	}
}

func TestShingle_TooFewTokens(t *testing.T) {
	shingles := shingle([]string{"a", "b"}, 3)
	if shingles != nil {
		t.Errorf("expected nil for fewer tokens than n, got: %v", shingles)
	}
}
