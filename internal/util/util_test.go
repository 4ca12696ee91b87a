package util

import (
	"strings"
	"testing"
	"time"
)

func TestFormatKST(t *testing.T) {
	ts := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	if got := FormatKST(ts, "2006-01-02 15:04"); got != "2024-03-02 00:30" {
		t.Fatalf("FormatKST = %q", got)
	}
}

func TestSeeMore(t *testing.T) {
	out := SeeMore("📜 최근 대국\n• 1", "📜 최근 대국")
	if !strings.HasPrefix(out, "📜 최근 대국"+ZeroWidthSpace) {
		t.Fatalf("missing header prefix")
	}
	if strings.Count(out, "📜 최근 대국") != 1 {
		t.Fatalf("header duplicated")
	}
	if strings.Count(out, ZeroWidthSpace) != SeeMorePadding {
		t.Fatalf("padding = %d", strings.Count(out, ZeroWidthSpace))
	}
	if !strings.HasSuffix(out, ZeroWidthSpace+"\n• 1") {
		t.Fatalf("body lost: %q", out[len(out)-10:])
	}
}

func TestSeeMoreKeepsBodyWithoutHeader(t *testing.T) {
	out := SeeMore("• 1\n• 2", "랭킹")
	if !strings.HasPrefix(out, "랭킹") || !strings.HasSuffix(out, "\n• 1\n• 2") {
		t.Fatalf("out = %q", out)
	}
	if got := SeeMore("  ", "x"); got != "  " {
		t.Fatalf("blank text padded")
	}
}
