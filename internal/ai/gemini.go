package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"ipscope/internal/config"
	"ipscope/internal/logger"
	"ipscope/internal/metrics"
	"ipscope/internal/model"
)

// Gemini is a REST client for the Generative Language API.
type Gemini struct {
	endpoint   string
	textModel  string
	imageModel string
	client     *http.Client
	metrics    *metrics.Collector
	validate   *validator.Validate
}

func NewGemini(cfg config.AIConfig, client *http.Client, m *metrics.Collector) *Gemini {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gemini{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		client:     client,
		metrics:    m,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generationConfig struct {
	MaxOutputTokens  int             `json:"maxOutputTokens,omitempty"`
	ThinkingConfig   *thinkingConfig `json:"thinkingConfig,omitempty"`
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   interface{}     `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r *generateResponse) text() string {
	var b strings.Builder
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount  int              `json:"sampleCount"`
	AspectRatio  string           `json:"aspectRatio"`
	OutputOption predictOutputOpt `json:"outputOptions"`
}

type predictOutputOpt struct {
	MIMEType string `json:"mimeType"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MIMEType           string `json:"mimeType"`
	} `json:"predictions"`
}

func (g *Gemini) ValidateCredential(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: "Hi"}}}},
		GenerationConfig: &generationConfig{
			MaxOutputTokens: 1,
			ThinkingConfig:  &thinkingConfig{ThinkingBudget: 0},
		},
	}
	var resp generateResponse
	if err := g.call(ctx, key, g.textModel+":generateContent", req, &resp); err != nil {
		logger.Log.Debugf("Credential validation failed: %v", err)
		return false
	}
	return resp.text() != ""
}

func (g *Gemini) GenerateCritique(ctx context.Context, key string, trace model.TraceRecord) (*model.PrivacyAnalysis, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: critiquePrompt(trace)}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   critiqueSchema,
		},
	}
	var resp generateResponse
	if err := g.call(ctx, key, g.textModel+":generateContent", req, &resp); err != nil {
		return nil, fmt.Errorf("privacy analysis failed: %w", err)
	}
	return g.decodeCritique(resp.text())
}

func (g *Gemini) decodeCritique(text string) (*model.PrivacyAnalysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("privacy analysis failed: empty response")
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	var out model.PrivacyAnalysis
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("privacy analysis returned malformed JSON: %w", err)
	}
	if err := g.validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("privacy analysis has an unexpected shape: %w", err)
	}
	return &out, nil
}

func (g *Gemini) GenerateImage(ctx context.Context, key, prompt string) (*Image, error) {
	req := predictRequest{
		Instances: []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{
			SampleCount:  1,
			AspectRatio:  "16:9",
			OutputOption: predictOutputOpt{MIMEType: "image/jpeg"},
		},
	}
	var resp predictResponse
	if err := g.call(ctx, key, g.imageModel+":predict", req, &resp); err != nil {
		return nil, fmt.Errorf("postcard generation failed: %w", err)
	}
	for _, p := range resp.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		mime := p.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		return &Image{MIMEType: mime, Data: p.BytesBase64Encoded}, nil
	}
	return nil, ErrNoImage
}

// call POSTs body to {endpoint}/models/{method} and decodes the JSON answer into out.
func (g *Gemini) call(ctx context.Context, key, method string, body, out interface{}) error {
	if key == "" {
		return ErrInvalidCredential
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/models/"+method, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.metrics.RecordFailure(metrics.SourceAI, err)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		g.metrics.RecordFailure(metrics.SourceAI, err)
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		g.metrics.RecordFailure(metrics.SourceAI, err)
		if invalidKey(data) {
			return ErrInvalidCredential
		}
		return err
	}
	g.metrics.RecordSuccess(metrics.SourceAI, time.Since(start))

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse AI response: %w", err)
	}
	return nil
}

func invalidKey(body []byte) bool {
	s := string(body)
	return strings.Contains(s, "API key not valid") || strings.Contains(s, "API_KEY_INVALID")
}
