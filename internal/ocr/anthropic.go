package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"strings"

	"parking-attendant/internal/parking"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const platePrompt = "Read the vehicle registration plate in this image. " +
	"Reply with the plate characters only, or with nothing if no plate is visible."

var supportedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// AnthropicRecognizer asks a vision model for the plate text.
type AnthropicRecognizer struct {
	client anthropic.Client
	model  string
}

func NewAnthropicRecognizer(apiKey, model string, opts ...option.RequestOption) *AnthropicRecognizer {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &AnthropicRecognizer{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (r *AnthropicRecognizer) RecognizeText(ctx context.Context, frame parking.Frame, mode parking.OCRMode) (string, error) {
	mediaType, data, err := imagePayload(frame)
	if err != nil {
		return "", err
	}

	prompt := platePrompt
	if mode == parking.OCRModeSingleLine {
		prompt += " The plate is a single line of text."
	}

	resp, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: 64,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(data)),
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func imagePayload(frame parking.Frame) (string, []byte, error) {
	if len(frame.Data) == 0 {
		return "", nil, errors.New("empty frame")
	}

	contentType := frame.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(frame.Data)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && supportedMediaTypes[mediaType] {
		return mediaType, frame.Data, nil
	}

	data, err := toPNG(frame)
	if err != nil {
		return "", nil, err
	}
	return "image/png", data, nil
}
