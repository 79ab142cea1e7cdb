package parser

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParse_TitleAndTags(t *testing.T) {
	r := Parse("\n  Morning run #health\nFelt good. #Health #focus\n")
	if r.Title != "Morning run #health" {
		t.Errorf("title = %q", r.Title)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "health" || r.Tags[1] != "focus" {
		t.Errorf("tags = %v, want [health focus]", r.Tags)
	}
}

func TestParse_Empty(t *testing.T) {
	r := Parse("   \n\n")
	if r.Title != "" {
		t.Errorf("title = %q, want empty", r.Title)
	}
	if r.Tags != nil {
		t.Errorf("tags = %v, want nil", r.Tags)
	}
}

func TestExtractTags_IgnoresInlineHashes(t *testing.T) {
	tags := extractTags("issue#12 and C# and #1st are not tags, #real/nested is")
	if len(tags) != 1 || tags[0] != "real/nested" {
		t.Errorf("tags = %v, want [real/nested]", tags)
	}
}

func TestDeriveTitle_Truncates(t *testing.T) {
	long := strings.Repeat("ä", MaxTitleRunes+20)
	title := deriveTitle(long)
	if n := utf8.RuneCountInString(title); n != MaxTitleRunes {
		t.Errorf("title runes = %d, want %d", n, MaxTitleRunes)
	}
	if !strings.HasSuffix(title, "…") {
		t.Errorf("title %q should end with ellipsis", title)
	}
}
