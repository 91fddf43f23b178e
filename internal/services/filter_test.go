package services

import (
	"reflect"
	"testing"
)

func TestFilterScan(t *testing.T) {
	f := NewFilter([]string{"Spam", "ass", "free money", "垃圾", "spam"})

	cases := []struct {
		text    string
		matches []string
	}{
		{"This is SPAM!", []string{"spam"}},
		{"first class product", []string{}},
		{"you ass.", []string{"ass"}},
		{"Get free money now, spam inside", []string{"free money", "spam"}},
		{"这是垃圾广告", []string{"垃圾"}},
		{"", []string{}},
	}
	for _, tc := range cases {
		res := f.Scan(tc.text)
		if !reflect.DeepEqual(res.Matches, tc.matches) {
			t.Errorf("Scan(%q): Expected %v, got %v", tc.text, tc.matches, res.Matches)
		}
		if res.Flagged != (len(tc.matches) > 0) {
			t.Errorf("Scan(%q): Flagged=%v inconsistent with matches", tc.text, res.Flagged)
		}
	}
}

func TestFilterScanHTML(t *testing.T) {
	f := NewFilter([]string{"casino"})
	if res := f.ScanHTML(`<p>Visit our <a href="https://casino.example">site</a></p>`); res.Flagged {
		t.Errorf("attribute values must not be scanned: %v", res.Matches)
	}
	if res := f.ScanHTML(`<p>Best <b>Casino</b> in town</p>`); !res.Flagged {
		t.Error("Expected visible text to be flagged")
	}

	g := NewFilter([]string{"scamoffer", "scam"})
	for _, doc := range []string{
		"<div><p>scam</p><p>offer</p></div>",
		"<ul><li>scam</li><li>offer</li></ul>",
		"<blockquote><div><p>scam</p></div><p>offer</p></blockquote>",
	} {
		res := g.ScanHTML(doc)
		if !reflect.DeepEqual(res.Matches, []string{"scam"}) {
			t.Errorf("ScanHTML(%q): Expected [scam], got %v", doc, res.Matches)
		}
	}
}

func TestEmptyFilter(t *testing.T) {
	if res := NewFilter(nil).Scan("anything goes"); res.Flagged || res.Matches == nil {
		t.Errorf("unexpected result %+v", res)
	}
}
