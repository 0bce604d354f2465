package label

import (
	"context"
	"strings"
)

// Translator renders text into English. Implementations must return the input
// unchanged on any failure or timeout.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, text string) string

func (f TranslatorFunc) Translate(ctx context.Context, text string) string { return f(ctx, text) }

// Identity is the no-op translator.
var Identity Translator = TranslatorFunc(func(_ context.Context, text string) string { return text })

// Entry lists accepted surface variants for one semantic label.
type Entry struct {
	Label    string   `yaml:"label"`
	Variants []string `yaml:"variants"`
}

// Dictionary is ordered; the first matching entry wins.
type Dictionary []Entry

// Has reports whether label is one of the dictionary's semantic labels.
func (d Dictionary) Has(label string) bool {
	for _, e := range d {
		if e.Label == label {
			return true
		}
	}
	return false
}

// Normalize maps raw text to a semantic label: direct variant match on the
// lower-cased text, then label-name match on the translated text, then the
// lower-cased raw text itself. Callers detect "no label" by comparing against
// known labels.
func Normalize(ctx context.Context, raw string, dict Dictionary, tr Translator) string {
	rt := strings.ToLower(raw)
	for _, e := range dict {
		for _, v := range e.Variants {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" && strings.Contains(rt, v) {
				return e.Label
			}
		}
	}
	if tr != nil && strings.TrimSpace(raw) != "" {
		translated := strings.ToLower(safeTranslate(ctx, tr, raw))
		for _, e := range dict {
			if labelIn(translated, e.Label) {
				return e.Label
			}
		}
	}
	return rt
}

// labelIn matches the label name itself, also in its spaced form ("full_time" -> "full time").
func labelIn(text, label string) bool {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return false
	}
	if strings.Contains(text, key) {
		return true
	}
	spaced := strings.ReplaceAll(key, "_", " ")
	return spaced != key && strings.Contains(text, spaced)
}

// safeTranslate guards against translators that panic instead of failing soft.
func safeTranslate(ctx context.Context, tr Translator, text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = text
		}
	}()
	return tr.Translate(ctx, text)
}
