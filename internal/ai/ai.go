// Package ai talks to a generative-AI service for the privacy critique and
// the postcard image.
package ai

import (
	"context"
	"errors"
	"fmt"

	"ipscope/internal/model"
)

var (
	ErrInvalidCredential = errors.New("the AI credential is not valid")
	ErrNoImage           = errors.New("the AI service returned no image")
)

// Capability is everything the rest of the program needs from the AI service.
type Capability interface {
	// ValidateCredential reports whether key is accepted. Any failure counts as rejection.
	ValidateCredential(ctx context.Context, key string) bool
	GenerateCritique(ctx context.Context, key string, trace model.TraceRecord) (*model.PrivacyAnalysis, error)
	GenerateImage(ctx context.Context, key, prompt string) (*Image, error)
}

// Image is one generated picture.
type Image struct {
	MIMEType string
	Data     string // base64
}

func (i *Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, i.Data)
}

func PostcardPrompt(country string) string {
	return fmt.Sprintf("A beautiful, artistic digital postcard of %s. A stunning landscape or an iconic landmark, vivid colors, dreamy atmosphere, wide-angle view.", country)
}
