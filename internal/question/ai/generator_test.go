package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvtran/goldenbell/internal/question"
)

func serveQuestions(t *testing.T, items []map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"questions": items})
	}))
}

func TestGenerateMapsWireTypes(t *testing.T) {
	srv := serveQuestions(t, []map[string]interface{}{
		{"content": "mcq?", "type": "TN", "options": []string{"A", "B", "C"}, "answer": "B"},
		{"content": "tf?", "type": "DS", "answer": "True"},
		{"content": "short?", "type": "TL", "answer": "42"},
	})
	defer srv.Close()

	gen := NewGenerator(Config{GeneratorURL: srv.URL}, zerolog.New(io.Discard))
	qs, err := gen.Generate(context.Background(), question.GenerateRequest{Topic: "Sóng cơ", Count: 3})
	require.NoError(t, err)
	require.Len(t, qs, 3)

	assert.Equal(t, question.TypeMCQ, qs[0].Type)
	assert.Equal(t, question.TypeTrueFalse, qs[1].Type)
	assert.Equal(t, []string{"True", "False"}, qs[1].Options)
	assert.Equal(t, question.TypeShort, qs[2].Type)
	assert.Nil(t, qs[2].Options)
	for _, q := range qs {
		assert.Equal(t, "Sóng cơ", q.Topic)
		assert.NotEmpty(t, q.ID)
	}
}

func TestGenerateAppendsMissingAnswerOption(t *testing.T) {
	srv := serveQuestions(t, []map[string]interface{}{
		{"content": "mcq?", "type": "TN", "options": []string{"A", "B"}, "answer": "C"},
	})
	defer srv.Close()

	gen := NewGenerator(Config{GeneratorURL: srv.URL}, zerolog.New(io.Discard))
	qs, err := gen.Generate(context.Background(), question.GenerateRequest{Topic: "t", Count: 1})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Contains(t, qs[0].Options, "C")
}

func TestGenerateDropsMalformedItems(t *testing.T) {
	srv := serveQuestions(t, []map[string]interface{}{
		{"content": "", "type": "TN", "options": []string{"A", "B"}, "answer": "A"},
		{"content": "no answer", "type": "TL"},
		{"content": "ok", "type": "TL", "answer": "1"},
	})
	defer srv.Close()

	gen := NewGenerator(Config{GeneratorURL: srv.URL}, zerolog.New(io.Discard))
	qs, err := gen.Generate(context.Background(), question.GenerateRequest{Topic: "t", Count: 3})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "ok", qs[0].Content)
}

func TestGenerateAllMalformedIsError(t *testing.T) {
	srv := serveQuestions(t, []map[string]interface{}{
		{"content": "", "answer": ""},
	})
	defer srv.Close()

	gen := NewGenerator(Config{GeneratorURL: srv.URL}, zerolog.New(io.Discard))
	_, err := gen.Generate(context.Background(), question.GenerateRequest{Topic: "t", Count: 1})
	assert.Error(t, err)
}

func TestGenerateUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gen := NewGenerator(Config{GeneratorURL: srv.URL}, zerolog.New(io.Discard))
	_, err := gen.Generate(context.Background(), question.GenerateRequest{Topic: "t", Count: 1})
	assert.Error(t, err)
}

func TestGenerateUnconfigured(t *testing.T) {
	gen := NewGenerator(Config{}, zerolog.New(io.Discard))
	_, err := gen.Generate(context.Background(), question.GenerateRequest{Topic: "t", Count: 1})
	assert.Error(t, err)
}
