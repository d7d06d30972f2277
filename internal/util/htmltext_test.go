package util

import "testing"

func TestHTMLToText_Paragraphs(t *testing.T) {
	got := HTMLToText("<p>first</p><p>second</p>")
	want := "first\n\nsecond"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestHTMLToText_LineBreaks(t *testing.T) {
	got := HTMLToText("one<br>two")
	want := "one\ntwo"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestHTMLToText_PlainTextPassthrough(t *testing.T) {
	got := HTMLToText("no markup here")
	if got != "no markup here" {
		t.Errorf("Expected passthrough, got %q", got)
	}
}

func TestHTMLToText_StripsTags(t *testing.T) {
	got := HTMLToText(`<a href="https://example.com">link</a> and <strong>bold</strong>`)
	want := "link and bold"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
