package client

import (
	"context"

	"github.com/openai/openai-go"
)

// Client provides a unified interface for making AI requests.
type Client interface {
	Chat() ChatCompletions
	Images() ImageGenerations
}

// ChatCompletions provides chat completion methods.
type ChatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
	NewWithRetry(ctx context.Context, params openai.ChatCompletionNewParams, callback RetryCallback) error
}

// ImageGenerations provides image generation methods.
type ImageGenerations interface {
	New(ctx context.Context, params openai.ImageGenerateParams) (*openai.ImagesResponse, error)
}

// RetryCallback processes each completion attempt. Returning an error retries;
// returning a backoff.PermanentError stops.
type RetryCallback func(resp *openai.ChatCompletion, err error) error
