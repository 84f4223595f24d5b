// Package client wraps the OpenAI-compatible API behind a circuit breaker
// and a concurrency limit shared by all callers.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/atelier-ai/atelier/pkg/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var ErrNoProvidersAvailable = errors.New("no providers available")

// AIClient implements the Client interface.
type AIClient struct {
	client        *openai.Client
	breaker       *gobreaker.CircuitBreaker
	semaphore     *semaphore.Weighted
	modelMappings map[string]string
	logger        *zap.Logger
}

// NewClient creates a new AIClient.
func NewClient(cfg *config.OpenAI, logger *zap.Logger) (*AIClient, error) {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(90*time.Second),
		option.WithMaxRetries(0),
	)

	// Create circuit breaker settings
	settings := gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		Interval:    0,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &AIClient{
		client:        &client,
		breaker:       gobreaker.NewCircuitBreaker(settings),
		semaphore:     semaphore.NewWeighted(cfg.MaxConcurrent),
		modelMappings: cfg.ModelMappings,
		logger:        logger.Named("ai_client"),
	}, nil
}

// Chat returns a ChatCompletions implementation.
func (c *AIClient) Chat() ChatCompletions {
	return &chatCompletions{client: c}
}

// Images returns an ImageGenerations implementation.
func (c *AIClient) Images() ImageGenerations {
	return &imageGenerations{client: c}
}

// mapModel resolves a logical model name through the configured mappings.
func (c *AIClient) mapModel(model string) (string, error) {
	if mapped, ok := c.modelMappings[model]; ok {
		return mapped, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNoProvidersAvailable, model)
}

// chatCompletions implements the ChatCompletions interface.
type chatCompletions struct {
	client *AIClient
}

// New makes a chat completion request.
func (c *chatCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	mapped, err := c.client.mapModel(params.Model)
	if err != nil {
		return nil, err
	}

	params.Model = mapped

	// Try to acquire semaphore
	if err := c.client.semaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.client.semaphore.Release(1)

	// Execute request
	result, err := c.client.breaker.Execute(func() (any, error) {
		resp, err := c.client.client.Chat.Completions.New(ctx, params)
		if bl := c.checkBlockReasons(resp, params.Model); bl != nil {
			return resp, bl
		}
		return resp, err
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			return nil, fmt.Errorf("request rejected - circuit breaker is open: %w", err)
		case errors.Is(err, utils.ErrContentBlocked):
			return nil, err
		default:
			c.client.logger.Warn("Failed to make request", zap.Error(err))
			return nil, err
		}
	}

	return result.(*openai.ChatCompletion), nil
}

// NewWithRetry makes a chat completion request with retry logic. The callback
// inspects each response and may return an error to force another attempt, or
// a backoff.PermanentError to stop early.
func (c *chatCompletions) NewWithRetry(
	ctx context.Context, params openai.ChatCompletionNewParams, callback RetryCallback,
) error {
	mapped, err := c.client.mapModel(params.Model)
	if err != nil {
		return err
	}

	params.Model = mapped

	// Try to acquire semaphore
	if err := c.client.semaphore.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.client.semaphore.Release(1)

	var (
		attempt uint64
		resp    *openai.ChatCompletion
		lastErr error
	)

	options := utils.GetAnalysisRetryOptions()

	// Create retry operation
	operation := func() (struct{}, error) {
		// Check context before making request
		if err := ctx.Err(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		attempt++

		// Execute request with circuit breaker
		result, err := c.client.breaker.Execute(func() (any, error) {
			var execErr error
			resp, execErr = c.client.client.Chat.Completions.New(ctx, params)
			if bl := c.checkBlockReasons(resp, params.Model); bl != nil {
				return resp, bl
			}
			return resp, execErr
		})
		if err != nil {
			lastErr = err
			switch {
			case errors.Is(err, gobreaker.ErrOpenState):
				return struct{}{}, backoff.Permanent(fmt.Errorf("request rejected - circuit breaker is open: %w", err))
			case errors.Is(err, utils.ErrContentBlocked):
				return struct{}{}, backoff.Permanent(err)
			default:
				c.client.logger.Warn("Failed to make request",
					zap.Error(err),
					zap.String("model", params.Model),
					zap.Uint64("attempt", attempt))
			}

			// Call callback to handle response and error
			if cbErr := callback(resp, err); cbErr != nil {
				permanentError := &backoff.PermanentError{}
				if errors.As(cbErr, &permanentError) {
					return struct{}{}, backoff.Permanent(fmt.Errorf("permanent callback error: %w", cbErr))
				}

				c.client.logger.Warn("Callback error, will retry",
					zap.Error(cbErr),
					zap.Uint64("attempt", attempt))
				return struct{}{}, cbErr
			}

			return struct{}{}, err
		}

		// Call callback for successful response
		resp = result.(*openai.ChatCompletion)
		if cbErr := callback(resp, nil); cbErr != nil {
			permanentError := &backoff.PermanentError{}
			if errors.As(cbErr, &permanentError) {
				return struct{}{}, backoff.Permanent(fmt.Errorf("permanent callback error: %w", cbErr))
			}
			return struct{}{}, cbErr
		}
		return struct{}{}, nil
	}

	// Execute with retry
	if _, err := utils.WithRetry(ctx, operation, options); err != nil {
		if lastErr != nil {
			return fmt.Errorf("all retry attempts failed: %w (last error: %w)", err, lastErr)
		}
		return fmt.Errorf("all retry attempts failed: %w", err)
	}

	return nil
}

// checkBlockReasons checks if the response was blocked by content filtering.
func (c *chatCompletions) checkBlockReasons(resp *openai.ChatCompletion, model string) error {
	// Check if response is provided
	if resp == nil {
		c.client.logger.Warn("Received nil response", zap.String("model", model))
		return fmt.Errorf("%w: received nil response", utils.ErrContentBlocked)
	}

	// Check if choices are provided
	if len(resp.Choices) == 0 {
		c.client.logger.Warn("Received empty choices", zap.String("model", model))
		return fmt.Errorf("%w: received empty choices", utils.ErrContentBlocked)
	}

	// Check if finish reason is provided
	finishReason := resp.Choices[0].FinishReason
	if finishReason == "" {
		c.client.logger.Warn("No finish reason provided", zap.String("model", model))
		return fmt.Errorf("%w: no finish reason provided", utils.ErrContentBlocked)
	}

	// Map of finish reasons to their error handling
	finishReasonHandlers := map[string]error{
		"content_filter": utils.ErrContentBlocked,
		"stop":           nil,
	}

	err, known := finishReasonHandlers[finishReason]
	if !known {
		c.client.logger.Warn("Unknown finish reason",
			zap.String("model", model),
			zap.String("finishReason", finishReason))
		err = utils.ErrContentBlocked
	}

	if err != nil {
		c.client.logger.Warn("Content blocked",
			zap.String("model", model),
			zap.String("finishReason", finishReason))
		return backoff.Permanent(err)
	}

	return nil
}

// imageGenerations implements the ImageGenerations interface.
type imageGenerations struct {
	client *AIClient
}

// New makes an image generation request.
func (g *imageGenerations) New(ctx context.Context, params openai.ImageGenerateParams) (*openai.ImagesResponse, error) {
	mapped, err := g.client.mapModel(string(params.Model))
	if err != nil {
		return nil, err
	}

	params.Model = openai.ImageModel(mapped)

	// Try to acquire semaphore
	if err := g.client.semaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer g.client.semaphore.Release(1)

	// Execute request
	result, err := g.client.breaker.Execute(func() (any, error) {
		resp, err := g.client.client.Images.Generate(ctx, params)
		if err != nil {
			return nil, err
		}

		if resp == nil || len(resp.Data) == 0 {
			return nil, fmt.Errorf("%w: empty image response", utils.ErrContentBlocked)
		}

		return resp, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			return nil, fmt.Errorf("request rejected - circuit breaker is open: %w", err)
		case errors.Is(err, utils.ErrContentBlocked):
			return nil, err
		default:
			g.client.logger.Warn("Failed to generate image", zap.Error(err))
			return nil, err
		}
	}

	return result.(*openai.ImagesResponse), nil
}
