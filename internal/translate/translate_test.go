package translate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
)

// echoModel answers numbered prompts by upper-casing each item.
type echoModel struct {
	calls int
	fail  int // fail this many calls before succeeding
}

func (m *echoModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.calls++
	if m.calls <= m.fail {
		return nil, fmt.Errorf("backend unavailable")
	}
	user := input[len(input)-1].Content
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(user), "\n") {
		num, text, ok := strings.Cut(line, ". ")
		if !ok {
			continue
		}
		out = append(out, num+". "+strings.ToUpper(text))
	}
	return schema.AssistantMessage(strings.Join(out, "\n"), nil), nil
}

func (m *echoModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported")
}

func newTestTranslator(t *testing.T, m model.BaseChatModel, cfg Config) *Translator {
	t.Helper()
	tr, err := NewWithModel(m, cfg)
	require.NoError(t, err)
	tr.retryDelay = time.Millisecond
	return tr
}

func seg(id int64, typ layout.ElementType, text string) layout.Segment {
	return layout.Segment{ID: id, Type: typ, Text: text}
}

func TestTranslateSegments(t *testing.T) {
	tr := newTestTranslator(t, &echoModel{}, Config{Model: "test", TargetLanguage: "ru"})

	segs := []layout.Segment{
		seg(1, layout.TypeHeading, "Introduction"),
		seg(2, layout.TypeParagraph, "Hello world"),
		seg(3, layout.TypeFigure, "figure content"),
		seg(4, layout.TypeParagraph, "   "),
	}

	got, err := tr.TranslateSegments(context.Background(), segs)
	require.NoError(t, err)

	assert.Equal(t, "INTRODUCTION", got[1])
	assert.Equal(t, "HELLO WORLD", got[2])
	// Figures and empty segments are skipped.
	assert.NotContains(t, got, int64(3))
	assert.NotContains(t, got, int64(4))
}

func TestTranslateBatching(t *testing.T) {
	m := &echoModel{}
	tr := newTestTranslator(t, m, Config{Model: "test", BatchSize: 2})

	segs := make([]layout.Segment, 5)
	for i := range segs {
		segs[i] = seg(int64(i+1), layout.TypeParagraph, fmt.Sprintf("text %d", i+1))
	}

	got, err := tr.TranslateSegments(context.Background(), segs)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 3, m.calls)
	assert.Equal(t, "TEXT 4", got[4])
}

func TestTranslateRetries(t *testing.T) {
	m := &echoModel{fail: 2}
	tr := newTestTranslator(t, m, Config{Model: "test"})

	got, err := tr.TranslateSegments(context.Background(), []layout.Segment{
		seg(1, layout.TypeParagraph, "retry me"),
	})
	require.NoError(t, err)
	assert.Equal(t, "RETRY ME", got[1])
	assert.Equal(t, 3, m.calls)
}

func TestTranslateGivesUp(t *testing.T) {
	m := &echoModel{fail: 100}
	tr := newTestTranslator(t, m, Config{Model: "test"})

	_, err := tr.TranslateSegments(context.Background(), []layout.Segment{
		seg(1, layout.TypeParagraph, "doomed"),
	})
	assert.Error(t, err)
	assert.Equal(t, MaxRetries, m.calls)
}

func TestTranslateUsesCache(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.json")

	m := &echoModel{}
	tr := newTestTranslator(t, m, Config{Model: "test", CachePath: cachePath})

	segs := []layout.Segment{seg(1, layout.TypeParagraph, "cache me")}
	_, err := tr.TranslateSegments(context.Background(), segs)
	require.NoError(t, err)
	assert.Equal(t, 1, m.calls)

	// A fresh translator over the same cache file answers without a
	// model call.
	m2 := &echoModel{}
	tr2 := newTestTranslator(t, m2, Config{Model: "test", CachePath: cachePath})
	got, err := tr2.TranslateSegments(context.Background(), segs)
	require.NoError(t, err)
	assert.Equal(t, "CACHE ME", got[1])
	assert.Equal(t, 0, m2.calls)
}

func TestCacheKeyDistinguishesModelAndLanguage(t *testing.T) {
	assert.NotEqual(t, Key("m1", "ru", "text"), Key("m2", "ru", "text"))
	assert.NotEqual(t, Key("m1", "ru", "text"), Key("m1", "de", "text"))
	assert.Equal(t, Key("m1", "ru", "text"), Key("m1", "ru", "text"))
}

func TestParseNumberedResponse(t *testing.T) {
	items, err := parseNumberedResponse("1. first\n2. second\n3) third", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, items)
}

func TestParseNumberedResponseContinuation(t *testing.T) {
	items, err := parseNumberedResponse("1. first part\ncontinues here\n2. second", 2)
	require.NoError(t, err)
	assert.Equal(t, "first part continues here", items[0])
}

func TestParseNumberedResponseMissingItem(t *testing.T) {
	_, err := parseNumberedResponse("1. only one", 2)
	assert.Error(t, err)
}
