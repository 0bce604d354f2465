package label

import (
	"context"
	"testing"
)

var bannerDict = Dictionary{
	{Label: "full_time", Variants: []string{"Full Time", "FT"}},
	{Label: "in_progress", Variants: []string{"1st half", "2nd half"}},
}

func TestNormalizeDirectVariant(t *testing.T) {
	got := Normalize(context.Background(), "  FULL TIME  ", bannerDict, nil)
	if got != "full_time" {
		t.Fatalf("expected full_time, got %q", got)
	}
}

func TestNormalizeFirstEntryWins(t *testing.T) {
	got := Normalize(context.Background(), "2nd half ft", bannerDict, nil)
	if got != "full_time" {
		t.Fatalf("expected dictionary order to decide, got %q", got)
	}
}

func TestNormalizeTranslationFallback(t *testing.T) {
	called := 0
	tr := TranslatorFunc(func(_ context.Context, text string) string {
		called++
		return "Full Time"
	})
	got := Normalize(context.Background(), "Tiempo completo", bannerDict, tr)
	if got != "full_time" {
		t.Fatalf("expected translated label, got %q", got)
	}
	if called != 1 {
		t.Fatalf("translator should be called once, got %d", called)
	}
}

func TestNormalizePassthrough(t *testing.T) {
	got := Normalize(context.Background(), "54:34", bannerDict, Identity)
	if got != "54:34" {
		t.Fatalf("expected raw passthrough, got %q", got)
	}
	if bannerDict.Has(got) {
		t.Fatalf("passthrough must not collide with a known label")
	}
}

func TestNormalizePanickingTranslatorFailsSoft(t *testing.T) {
	tr := TranslatorFunc(func(context.Context, string) string { panic("boom") })
	got := Normalize(context.Background(), "Mi-temps", bannerDict, tr)
	if got != "mi-temps" {
		t.Fatalf("expected lower-cased raw text, got %q", got)
	}
}

func TestNormalizeEmptyVariantIgnored(t *testing.T) {
	d := Dictionary{{Label: "full_time", Variants: []string{""}}}
	if got := Normalize(context.Background(), "anything", d, nil); got != "anything" {
		t.Fatalf("empty variant must not match, got %q", got)
	}
}
