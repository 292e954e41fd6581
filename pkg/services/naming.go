package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/config"
	"github.com/mergetab/mergetab-engine/pkg/repositories"
	"github.com/mergetab/mergetab-engine/pkg/retry"
)

const namingSystemPrompt = `You name database tables. Given the column names of a merged spreadsheet table, reply with a short, human-readable table name of at most five words. Reply with the name only, no punctuation, no explanation.`

// NameSuggestion is the outcome of a naming request.
type NameSuggestion struct {
	Name      string `json:"name"`
	Generated bool   `json:"generated"` // false when the deterministic fallback was used
}

// NamingService suggests a human-readable name for a group based on its
// schema. Uses an OpenAI-compatible endpoint when one is configured and
// falls back to a name derived from the column names when it is not, or
// when the endpoint keeps failing.
type NamingService interface {
	SuggestName(ctx context.Context, groupID uuid.UUID, columns []string) (*NameSuggestion, error)
}

type namingService struct {
	cfg     config.NamingConfig
	client  *openai.Client
	retries *retry.Config
	schemas repositories.SchemaRepository
	logger  *zap.Logger
}

// NewNamingService creates a new NamingService.
func NewNamingService(cfg config.NamingConfig, schemas repositories.SchemaRepository, logger *zap.Logger) NamingService {
	s := &namingService{
		cfg:     cfg,
		retries: retry.DefaultConfig(),
		schemas: schemas,
		logger:  logger,
	}

	if cfg.Enabled() {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
		s.client = openai.NewClientWithConfig(clientConfig)
	}

	return s
}

var _ NamingService = (*namingService)(nil)

func (s *namingService) SuggestName(ctx context.Context, groupID uuid.UUID, columns []string) (*NameSuggestion, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("group has no columns to name from")
	}

	if s.client != nil {
		name, err := s.generate(ctx, columns)
		if err == nil && name != "" {
			return &NameSuggestion{Name: name, Generated: true}, nil
		}
		s.logger.Warn("name generation failed, using fallback",
			zap.String("group_id", groupID.String()),
			zap.Error(err))
	}

	return &NameSuggestion{Name: fallbackName(columns)}, nil
}

func (s *namingService) generate(ctx context.Context, columns []string) (string, error) {
	prompt := fmt.Sprintf("Columns: %s", strings.Join(columns, ", "))

	return retry.DoWithResult(ctx, s.retries, func() (string, error) {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: s.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: namingSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0.2,
		})
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}

		name := strings.TrimSpace(resp.Choices[0].Message.Content)
		name = strings.Trim(name, `"'.`)
		if name == "" {
			return "", fmt.Errorf("empty name in response")
		}
		return name, nil
	})
}

// fallbackName builds a name from the first few column names: ASCII words
// are singularized and title-cased, anything else is kept as is.
func fallbackName(columns []string) string {
	limit := 3
	if len(columns) < limit {
		limit = len(columns)
	}

	parts := make([]string, 0, limit+1)
	for _, col := range columns[:limit] {
		parts = append(parts, titleWord(col))
	}
	parts = append(parts, "Table")

	return strings.Join(parts, " ")
}

func titleWord(s string) string {
	if !isASCIIAlpha(s) {
		return s
	}

	w := inflection.Singular(strings.ToLower(s))
	if w == "" {
		return s
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func isASCIIAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
