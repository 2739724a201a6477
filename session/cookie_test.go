package session

import (
	"net/http"
	"strings"
	"testing"
)

func TestTokenFromHeader(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"empty", "", "", false},
		{"single", "session=abc", "abc", true},
		{"among others", "theme=dark; session=abc; lang=en", "abc", true},
		{"whitespace", "  session = abc  ", "abc", true},
		{"value with equals", "session=a=b", "a=b", true},
		{"missing", "theme=dark", "", false},
		{"empty value", "session=", "", false},
		{"no separator", "session", "", false},
		{"prefix name", "xsession=abc", "", false},
		{"garbage", ";;==;", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := TokenFromHeader(tc.header)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("TokenFromHeader(%q) = %q, %v; want %q, %v", tc.header, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestTokenFromRequestMultipleHeaders(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.Header.Add("Cookie", "theme=dark")
	r.Header.Add("Cookie", "session=tok")

	got, ok := TokenFromRequest(r)
	if !ok || got != "tok" {
		t.Fatalf("expected tok, got %q %v", got, ok)
	}

	if _, ok := TokenFromRequest(nil); ok {
		t.Fatal("nil request must not yield a token")
	}
}

func TestCookieFormat(t *testing.T) {
	got := Cookie("abc")
	want := "session=abc; HttpOnly; SameSite=Lax; Path=/; Max-Age=604800"
	if got != want {
		t.Fatalf("Cookie = %q, want %q", got, want)
	}

	cleared := ClearedCookie()
	if !strings.HasPrefix(cleared, "session=;") || !strings.HasSuffix(cleared, "Max-Age=0") {
		t.Fatalf("unexpected cleared cookie %q", cleared)
	}
}

func TestCookieRoundTrip(t *testing.T) {
	tok := strings.Repeat("ab", 32)
	header := strings.SplitN(Cookie(tok), ";", 2)[0]
	got, ok := TokenFromHeader(header)
	if !ok || got != tok {
		t.Fatalf("round trip lost token: %q %v", got, ok)
	}
}
