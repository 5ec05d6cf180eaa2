package story

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"shortshive/internal/domain"
)

const openAIDefaultTimeout = 90 * time.Second

// GenerateSchema reflects a strict JSON schema for T.
func GenerateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var refinedStorySchema = GenerateSchema[RefinedStory]()

type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	Referer    string
	HTTPClient *http.Client
	MaxRetries int
}

// OpenAIRefiner calls an OpenAI-compatible chat completion endpoint
// (OpenRouter by default) with a JSON schema response format.
type OpenAIRefiner struct {
	client openai.Client
	model  string
}

func NewOpenAIRefiner(opts OpenAIOptions) (*OpenAIRefiner, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("refiner api key is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: openAIDefaultTimeout}
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(opts.APIKey)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	if ref := strings.TrimSpace(opts.Referer); ref != "" {
		reqOpts = append(reqOpts, option.WithHeader("HTTP-Referer", ref))
	}
	return &OpenAIRefiner{
		client: openai.NewClient(reqOpts...),
		model:  coalesce(opts.Model, "google/gemini-2.0-flash-001"),
	}, nil
}

func (o *OpenAIRefiner) Refine(ctx context.Context, req RefineRequest) (*RefinedStory, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, domain.Invalid("story content is required")
	}
	settings := req.Settings
	settings.normalize()

	parsed, err := getStructuredResponse[RefinedStory](ctx, o.client, o.model,
		buildSystemPrompt(settings), buildUserPrompt(req.Content, settings), refinedStorySchema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}
	story, err := finalize(parsed, settings, openAIProviderName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}
	return story, nil
}

func getStructuredResponse[T any](ctx context.Context, client openai.Client, model, system, prompt string, schema interface{}) (*T, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "refined_story",
		Description: openai.String("Animated story split into scenes"),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(0.7),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("no response from refiner")
	}

	raw := completion.Choices[0].Message.Content
	parsed, err := parseModelPayload[T](raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse refined story: %w", err)
	}
	return &parsed, nil
}

var _ Refiner = (*OpenAIRefiner)(nil)
