package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("日本語のテキスト", 3); got != "日本語..." {
		t.Errorf("multibyte: got %s", got)
	}
	if got := Truncate("日本語", 3); got != "日本語" {
		t.Errorf("exact rune length should be unchanged: got %s", got)
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("short", 100); got != "short..." {
		t.Errorf("got %s", got)
	}
	if got := Snippet("abcdef", 3); got != "abc..." {
		t.Errorf("got %s", got)
	}
}

func TestCountWords(t *testing.T) {
	if n := CountWords("  one two\nthree\t four "); n != 4 {
		t.Errorf("CountWords = %d, want 4", n)
	}
	if n := CountWords(""); n != 0 {
		t.Errorf("CountWords empty = %d", n)
	}
}
