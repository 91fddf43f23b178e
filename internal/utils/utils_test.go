package utils

import (
	"strings"
	"testing"
	"time"
)

func TestCacheTTL(t *testing.T) {
	c := NewCache[int](2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Expected cached 1, got %v %v", v, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("Expected entry to expire")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed, len=%d", c.Len())
	}
}

func TestCacheEvictionAndPurge(t *testing.T) {
	c := NewCache[string](2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	if _, ok := c.Get("a"); ok {
		t.Error("Expected least recently used entry to be evicted")
	}
	c.Delete("b")
	if _, ok := c.Get("b"); ok {
		t.Error("Expected deleted entry to be gone")
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Expected empty cache after purge, len=%d", c.Len())
	}
}

func TestStartOfDayAndMonthKey(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	// UTC 3 月 31 日 20:00 在 +8 时区已是 4 月 1 日
	ts := time.Date(2026, 3, 31, 20, 0, 0, 0, time.UTC)

	start := StartOfDay(ts, shanghai)
	if want := time.Date(2026, 4, 1, 0, 0, 0, 0, shanghai); !start.Equal(want) {
		t.Errorf("Expected %v, got %v", want, start)
	}
	if got := MonthKey(ts, shanghai); got != "2026-04" {
		t.Errorf("Expected 2026-04, got %s", got)
	}
	if got := MonthKey(ts, time.UTC); got != "2026-03" {
		t.Errorf("Expected 2026-03, got %s", got)
	}
}

func TestProductPoints(t *testing.T) {
	cases := []struct{ up, down, want int64 }{
		{0, 0, 0},
		{1, 0, 10},
		{0, 1, -5},
		{4, 3, 25},
	}
	for _, tc := range cases {
		if got := ProductPoints(tc.up, tc.down); got != tc.want {
			t.Errorf("ProductPoints(%d, %d) = %d, want %d", tc.up, tc.down, got, tc.want)
		}
	}
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := string(RenderMarkdown("**bold** <script>alert(1)</script>\n\n![x](https://img.example/a.png)"))
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("Expected bold markup, got %s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("script must be stripped, got %s", out)
	}
	if !strings.Contains(out, `loading="lazy"`) || !strings.Contains(out, `referrerpolicy="no-referrer"`) {
		t.Errorf("Expected enhanced img tag, got %s", out)
	}
}

func TestSanitizeText(t *testing.T) {
	if got := SanitizeText("Tom & Jerry <b>show</b>"); got != "Tom & Jerry show" {
		t.Errorf("unexpected %q", got)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("<p>Hello</p><p>world</p><script>evil()</script>")
	if got != "Hello world" {
		t.Errorf("Expected %q, got %q", "Hello world", got)
	}
	if got := PlainText("no markup"); got != "no markup" {
		t.Errorf("unexpected %q", got)
	}

	nested := map[string]string{
		"<div><p>scam</p><p>offer</p></div>":           "scam offer",
		"<ul><li>scam</li><li>offer</li></ul>":         "scam offer",
		"<p>Best <b>Cas</b>ino in town</p>":            "Best Casino in town",
		"<section><div>a<br>b</div><p>c</p></section>": "a b c",
	}
	for in, want := range nested {
		if got := PlainText(in); got != want {
			t.Errorf("PlainText(%q): Expected %q, got %q", in, want, got)
		}
	}
}
