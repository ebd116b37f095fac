package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jetwayhq/jetway/pkg/adapters/image"
	"github.com/jetwayhq/jetway/pkg/resilience"
)

const (
	defaultImageModel = "dall-e-3"
	defaultImageSize  = "1024x1024"

	// {city} is replaced with the artifact cue.
	defaultPromptTemplate = "An image representing a vacation in {city}, " +
		"showing tourist spots and everything unique about {city}, " +
		"in a vibrant pop-art style"
)

// ImageAdapter renders destination images through the OpenAI images API.
type ImageAdapter struct {
	APIKey         string
	Model          string
	Size           string
	PromptTemplate string
	BaseURL        string
	Client         *http.Client
}

func NewImageAdapter(apiKey, model string) *ImageAdapter {
	if model == "" {
		model = defaultImageModel
	}
	return &ImageAdapter{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://api.openai.com/v1",
		// Image renders run well past the chat timeout.
		Client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (a *ImageAdapter) Name() string { return "openai_image" }

func (a *ImageAdapter) Generate(ctx context.Context, cue string) (image.Image, error) {
	prompt := strings.ReplaceAll(a.promptTemplate(), "{city}", cue)
	payload := map[string]any{
		"model":           a.Model,
		"prompt":          prompt,
		"size":            a.size(),
		"n":               1,
		"response_format": "b64_json",
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return image.Image{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/images/generations", bytes.NewBuffer(b))
	if err != nil {
		return image.Image{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.APIKey)

	resp, err := a.client().Do(req)
	if err != nil {
		return image.Image{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		return image.Image{}, resilience.RateLimitError{Provider: "openai_image", Message: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return image.Image{}, errors.New(string(body))
	}

	var decoded struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return image.Image{}, err
	}
	if len(decoded.Data) == 0 || decoded.Data[0].B64JSON == "" {
		return image.Image{}, errors.New("no image data")
	}
	raw, err := base64.StdEncoding.DecodeString(decoded.Data[0].B64JSON)
	if err != nil {
		return image.Image{}, err
	}
	return image.Image{Bytes: raw, MIME: "image/png"}, nil
}

func (a *ImageAdapter) promptTemplate() string {
	if a.PromptTemplate != "" {
		return a.PromptTemplate
	}
	return defaultPromptTemplate
}

func (a *ImageAdapter) size() string {
	if a.Size != "" {
		return a.Size
	}
	return defaultImageSize
}

func (a *ImageAdapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

var _ image.Generator = (*ImageAdapter)(nil)
