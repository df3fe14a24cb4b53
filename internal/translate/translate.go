// Package translate sends segment text to an OpenAI-compatible chat
// model and maps translations back onto segments.
package translate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/logger"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/textutil"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

const (
	// DefaultBatchSize is how many segments go into one chat request.
	DefaultBatchSize = 10
	// MaxRetries is the retry count for a failed chat request.
	MaxRetries = 3
	// BaseRetryDelay grows linearly with the attempt number.
	BaseRetryDelay = 2 * time.Second
)

var numberedLineRe = regexp.MustCompile(`^\s*(\d+)[.)]\s*(.*)$`)

// Config holds translator settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TargetLanguage string
	BatchSize      int
	CachePath      string
}

// Translator translates segments through a chat model, with a
// persistent cache in front of it.
type Translator struct {
	chatModel  model.BaseChatModel
	modelName  string
	targetLang string
	batchSize  int
	cache      *Cache
	retryDelay time.Duration
}

// New creates a Translator backed by an OpenAI-compatible endpoint.
func New(ctx context.Context, cfg Config) (*Translator, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:  cfg.Model,
		APIKey: cfg.APIKey,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}
	chatModel, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, types.NewAppError(types.ErrTranslation, "failed to create chat model", err)
	}
	return NewWithModel(chatModel, cfg)
}

// NewWithModel creates a Translator over an existing chat model.
func NewWithModel(chatModel model.BaseChatModel, cfg Config) (*Translator, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	targetLang := cfg.TargetLanguage
	if targetLang == "" {
		targetLang = "ru"
	}

	cache := NewCache(cfg.CachePath)
	if err := cache.Load(); err != nil {
		return nil, err
	}
	return &Translator{
		chatModel:  chatModel,
		modelName:  cfg.Model,
		targetLang: targetLang,
		batchSize:  batchSize,
		cache:      cache,
		retryDelay: BaseRetryDelay,
	}, nil
}

// TranslateSegments translates every translatable, non-empty segment
// and returns translations keyed by segment id. Tables and figures are
// skipped; cached translations are reused without a model call.
func (t *Translator) TranslateSegments(ctx context.Context, segs []layout.Segment) (map[int64]string, error) {
	out := make(map[int64]string)

	var pending []layout.Segment
	for _, s := range segs {
		if !s.Type.IsTranslatable() || strings.TrimSpace(s.Text) == "" {
			continue
		}
		if cached, ok := t.cache.Get(Key(t.modelName, t.targetLang, s.Text)); ok {
			out[s.ID] = cached
			continue
		}
		pending = append(pending, s)
	}
	if len(pending) == 0 {
		return out, nil
	}
	logger.Info("translating segments",
		logger.Int("total", len(pending)),
		logger.Int("cached", len(out)))

	for start := 0; start < len(pending); start += t.batchSize {
		end := start + t.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		translations, err := t.translateBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		for i, s := range batch {
			out[s.ID] = translations[i]
			t.cache.Set(Key(t.modelName, t.targetLang, s.Text), s.Text, translations[i])
		}
	}

	if err := t.cache.Save(); err != nil {
		logger.Warn("failed to save translation cache", logger.Err(err))
	}
	return out, nil
}

// translateBatch sends one numbered batch and returns translations in
// batch order.
func (t *Translator) translateBatch(ctx context.Context, batch []layout.Segment) ([]string, error) {
	prompt := buildPrompt(batch)
	messages := []*schema.Message{
		schema.SystemMessage(t.systemPrompt()),
		schema.UserMessage(prompt),
	}

	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		resp, err := t.chatModel.Generate(ctx, messages)
		if err != nil {
			lastErr = types.NewAppError(types.ErrAPICall, "chat request failed", err)
			logger.Warn("translation attempt failed",
				logger.Int("attempt", attempt), logger.Err(err))
			if attempt < MaxRetries {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(t.retryDelay * time.Duration(attempt)):
				}
			}
			continue
		}

		translations, err := parseNumberedResponse(resp.Content, len(batch))
		if err != nil {
			// A malformed response is usually model flakiness; retry.
			lastErr = err
			logger.Warn("unparseable translation response",
				logger.Int("attempt", attempt), logger.Err(err))
			continue
		}
		return translations, nil
	}
	return nil, types.NewAppErrorWithDetails(
		types.ErrTranslation,
		"translation failed after multiple retries",
		fmt.Sprintf("attempted %d times", MaxRetries),
		lastErr,
	)
}

func (t *Translator) systemPrompt() string {
	return fmt.Sprintf(
		"You are a professional document translator. Translate each numbered item into %s. "+
			"Respond with the same numbered list, one item per number, and nothing else. "+
			"Preserve technical terms, numbers, and formatting. Do not merge or split items.",
		t.targetLang)
}

func buildPrompt(batch []layout.Segment) string {
	var sb strings.Builder
	for i, s := range batch {
		// Join hard-wrapped scan lines so the model sees whole
		// sentences, not line fragments.
		text := textutil.DenoiseSoftLinebreaks(s.Text)
		fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.ReplaceAll(text, "\n", " "))
	}
	return sb.String()
}

// parseNumberedResponse extracts items 1..n from a numbered list
// response. Continuation lines attach to the preceding item.
func parseNumberedResponse(content string, n int) ([]string, error) {
	items := make([]string, n)
	current := -1
	for _, line := range strings.Split(content, "\n") {
		if m := numberedLineRe.FindStringSubmatch(line); m != nil {
			idx, err := strconv.Atoi(m[1])
			if err == nil && idx >= 1 && idx <= n {
				current = idx - 1
				items[current] = m[2]
				continue
			}
		}
		if current >= 0 && strings.TrimSpace(line) != "" {
			items[current] += " " + strings.TrimSpace(line)
		}
	}
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			return nil, types.NewAppErrorWithDetails(
				types.ErrTranslation,
				"incomplete translation response",
				fmt.Sprintf("missing item %d of %d", i+1, n),
				nil,
			)
		}
		items[i] = strings.TrimSpace(item)
	}
	return items, nil
}
