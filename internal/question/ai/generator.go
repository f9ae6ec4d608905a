package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hvtran/goldenbell/internal/question"
)

// Config holds connection details for the generator service.
type Config struct {
	GeneratorURL string
	GeneratorKey string
	Timeout      time.Duration
}

// Generator calls an external LLM question service over HTTP. The wire
// format mirrors the Gemini JSON-schema output the service produces:
// items typed TN (multiple choice), DS (true/false), TL (short answer).
type Generator struct {
	httpClient  *http.Client
	config      Config
	logger      zerolog.Logger
	generateURL string
}

var _ question.Generator = (*Generator)(nil)

func NewGenerator(cfg Config, logger zerolog.Logger) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Generator{
		httpClient:  &http.Client{Timeout: timeout},
		config:      cfg,
		logger:      logger.With().Str("component", "ai_generator").Logger(),
		generateURL: strings.TrimSuffix(cfg.GeneratorURL, "/") + "/generate",
	}
}

// Generate synchronously requests a question set.
func (g *Generator) Generate(ctx context.Context, req question.GenerateRequest) ([]question.Question, error) {
	if g.config.GeneratorURL == "" {
		return nil, fmt.Errorf("generator endpoint not configured")
	}

	payload := generatorRequest{
		Topic:      req.Topic,
		Grade:      req.Grade,
		Difficulty: req.Difficulty,
		Count:      req.Count,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.generateURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.config.GeneratorKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.config.GeneratorKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var genResp generatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decode generator payload: %w", err)
	}

	questions := make([]question.Question, 0, len(genResp.Questions))
	for _, item := range genResp.Questions {
		q, ok := normalize(item, req.Topic)
		if !ok {
			g.logger.Warn().Str("item_id", item.ID).Msg("dropping malformed generated question")
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("generator returned no usable questions")
	}
	return questions, nil
}

// normalize converts a generated item to the domain form. Items missing a
// content or an answer are dropped rather than served incomplete.
func normalize(item generatedItem, topic string) (question.Question, bool) {
	if item.Content == "" || item.Answer == "" {
		return question.Question{}, false
	}

	qType := adaptType(item.Type)
	options := item.Options
	switch qType {
	case question.TypeMCQ:
		if len(options) < 2 {
			return question.Question{}, false
		}
		found := false
		for _, opt := range options {
			if strings.EqualFold(opt, item.Answer) {
				found = true
				break
			}
		}
		if !found {
			options = append(options, item.Answer)
		}
	case question.TypeTrueFalse:
		options = []string{"True", "False"}
	default:
		options = nil
	}

	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}

	return question.Question{
		ID:          id,
		Title:       item.Title,
		Content:     item.Content,
		Type:        qType,
		Options:     options,
		Answer:      item.Answer,
		Explanation: item.Explanation,
		Difficulty:  item.Difficulty,
		Topic:       topic,
		TimeLimit:   item.TimeLimit,
	}, true
}

func adaptType(t string) string {
	switch strings.ToUpper(t) {
	case "DS":
		return question.TypeTrueFalse
	case "TL":
		return question.TypeShort
	default: // TN and anything unrecognized
		return question.TypeMCQ
	}
}

type generatorRequest struct {
	Topic      string `json:"topic"`
	Grade      string `json:"grade,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Count      int    `json:"count"`
}

type generatedItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Type        string   `json:"type"` // TN, DS, TL
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Difficulty  string   `json:"difficulty"`
	TimeLimit   int      `json:"time_limit"`
}

type generatorResponse struct {
	Questions []generatedItem `json:"questions"`
}
