package nav

import "testing"

func TestParseCookieString(t *testing.T) {
	cookies := ParseCookieString("session=abc123; csrf=xyz; theme=dark", ".example.com", true)

	if len(cookies) != 3 {
		t.Fatalf("got %d cookies, want 3", len(cookies))
	}

	want := map[string]string{"session": "abc123", "csrf": "xyz", "theme": "dark"}
	for _, c := range cookies {
		if want[c.Name] != c.Value {
			t.Errorf("cookie %s = %q, want %q", c.Name, c.Value, want[c.Name])
		}
		if c.Domain != ".example.com" {
			t.Errorf("cookie %s domain = %q, want .example.com", c.Name, c.Domain)
		}
		if c.Path != "/" {
			t.Errorf("cookie %s path = %q, want /", c.Name, c.Path)
		}
	}
}

func TestParseCookieString_ValueWithEquals(t *testing.T) {
	cookies := ParseCookieString("token=a=b=c", "example.com", true)
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	if cookies[0].Value != "a=b=c" {
		t.Errorf("value = %q, want a=b=c (split on first = only)", cookies[0].Value)
	}
}

func TestParseCookieString_SkipsMalformedParts(t *testing.T) {
	cookies := ParseCookieString("good=1; ; novalue; =orphan; also_good=2", "example.com", true)
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2: %+v", len(cookies), cookies)
	}
	if cookies[0].Name != "good" || cookies[1].Name != "also_good" {
		t.Errorf("unexpected cookie names: %s, %s", cookies[0].Name, cookies[1].Name)
	}
}

func TestParseCookieString_Empty(t *testing.T) {
	if got := ParseCookieString("", "example.com", true); len(got) != 0 {
		t.Errorf("empty input should yield no cookies, got %+v", got)
	}
}

func TestParseCookieString_SecureFollowsScheme(t *testing.T) {
	// A Secure cookie is never sent to a plain-http origin, so the flag has
	// to track the target scheme or injected cookies silently vanish.
	plain := ParseCookieString("session=abc", "intranet.local", false)
	if len(plain) != 1 || plain[0].Secure {
		t.Errorf("http target cookie should not be Secure: %+v", plain)
	}
	tls := ParseCookieString("session=abc", "example.com", true)
	if len(tls) != 1 || !tls[0].Secure {
		t.Errorf("https target cookie should be Secure: %+v", tls)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"simple", "<html><head><title>Hello</title></head></html>", "Hello"},
		{"whitespace", "<title>\n  Trimmed  \n</title>", "Trimmed"},
		{"no title", "<html><body><p>x</p></body></html>", ""},
		{"empty title", "<title></title>", ""},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(tt.html); got != tt.want {
				t.Errorf("extractTitle = %q, want %q", got, tt.want)
			}
		})
	}
}
