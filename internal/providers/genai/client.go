package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shortshive/internal/infra"
)

var (
	// ErrNoCandidates is returned when the model answers without any candidate.
	ErrNoCandidates = errors.New("no images generated in response")
	// ErrNoContent is returned when the first candidate carries no parts.
	ErrNoContent = errors.New("no content parts in response")
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin REST client for Gemini image generation. Without an API key
// it renders deterministic synthetic images so local runs exercise the whole
// pipeline.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// ImageRequest asks for Expected images described by a single prompt.
type ImageRequest struct {
	Prompt      string
	Expected    int
	AspectRatio string
	RequestID   string
}

// ImageAsset is one image returned by the model, in response order.
type ImageAsset struct {
	Format string
	Width  int
	Height int
	Data   []byte
	URL    string
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	TopP               float64  `json:"topP,omitempty"`
	TopK               int      `json:"topK,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client. A nil HTTP client gets a default with
// a generous timeout because batch image calls are slow.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.0-flash-exp-image-generation"
	}

	logger := opts.Logger
	if logger == nil {
		l := infra.NopLogger()
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether remote calls will be made.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateImages issues one batch call and returns every image part of the
// first candidate in response order. The count is whatever the model produced.
func (c *Client) GenerateImages(ctx context.Context, req ImageRequest) ([]ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return c.syntheticImages(req), nil
	}
	return c.remoteGenerateImages(ctx, req)
}

// syntheticScale shrinks synthetic renders so local runs stay quick.
const syntheticScale = 4

func (c *Client) syntheticImages(req ImageRequest) []ImageAsset {
	count := req.Expected
	if count <= 0 {
		count = 1
	}
	width, height := normalizeAspect(req.AspectRatio)
	width, height = width/syntheticScale, height/syntheticScale

	assets := make([]ImageAsset, count)
	for i := 0; i < count; i++ {
		seed := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d", req.RequestID, req.Prompt, c.model, i))
		assets[i] = ImageAsset{
			Format: "image/png",
			Width:  width,
			Height: height,
			Data:   storyboardCard(width, height, i+1, seed),
		}
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Int("quantity", count).
		Msg("genai: generated synthetic image assets")

	return assets
}

func (c *Client) remoteGenerateImages(ctx context.Context, req ImageRequest) ([]ImageAsset, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: req.Prompt}},
			},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:        0.7,
			TopP:               0.9,
			TopK:               40,
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}
	if len(response.Candidates) == 0 {
		return nil, ErrNoCandidates
	}
	parts := response.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return nil, ErrNoContent
	}

	var assets []ImageAsset
	for i, part := range parts {
		asset, ok, err := c.decodeImagePart(ctx, part)
		if err != nil {
			c.logger.Warn().Err(err).Int("part", i).Str("request_id", req.RequestID).Msg("genai: skipping undecodable image part")
			continue
		}
		if !ok {
			continue
		}
		assets = append(assets, asset)
	}

	c.logger.Info().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Int("expected", req.Expected).
		Int("received", len(assets)).
		Msg("genai: batch image generation finished")

	return assets, nil
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

// decodeImagePart returns ok=false for text parts and non-image payloads.
func (c *Client) decodeImagePart(ctx context.Context, part geminiPart) (ImageAsset, bool, error) {
	switch {
	case part.InlineData != nil && part.InlineData.Data != "":
		if !strings.HasPrefix(part.InlineData.MimeType, "image/") {
			return ImageAsset{}, false, nil
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return ImageAsset{}, false, fmt.Errorf("decode inline data: %w", err)
		}
		w, h := decodeImageDimensions(data)
		return ImageAsset{Format: part.InlineData.MimeType, Width: w, Height: h, Data: data}, true, nil
	case part.FileData != nil && part.FileData.FileURI != "":
		data, mime, err := c.downloadFile(ctx, part.FileData.FileURI)
		if err != nil {
			return ImageAsset{}, false, err
		}
		format := firstNonEmpty(part.FileData.MimeType, mime)
		if !strings.HasPrefix(format, "image/") {
			return ImageAsset{}, false, nil
		}
		w, h := decodeImageDimensions(data)
		return ImageAsset{Format: format, Width: w, Height: h, Data: data, URL: part.FileData.FileURI}, true, nil
	default:
		return ImageAsset{}, false, nil
	}
}

func (c *Client) downloadFile(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("download file status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// storyboardCard renders a flat stand-in frame: a seed-tinted background with
// a darker caption band holding one tick per scene position.
func storyboardCard(width, height, position int, seed [32]byte) []byte {
	if width <= 0 {
		width = 256
	}
	if height <= 0 {
		height = 256
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bg := color.RGBA{R: seed[0], G: seed[1], B: seed[2], A: 255}
	band := color.RGBA{R: bg.R / 2, G: bg.G / 2, B: bg.B / 2, A: 255}
	tick := color.RGBA{R: 255 - bg.R, G: 255 - bg.G, B: 255 - bg.B, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)

	bandTop := height - max(1, height/6)
	draw.Draw(img, image.Rect(0, bandTop, width, height), &image.Uniform{band}, image.Point{}, draw.Src)

	size := max(1, (height-bandTop)/2)
	y := bandTop + (height-bandTop-size)/2
	for i := 0; i < position; i++ {
		x := size + i*size*2
		if x+size > width {
			break
		}
		draw.Draw(img, image.Rect(x, y, x+size, y+size), &image.Uniform{tick}, image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func normalizeAspect(aspect string) (int, int) {
	switch strings.TrimSpace(strings.ToLower(aspect)) {
	case "16:9":
		return 1920, 1080
	case "9:16":
		return 1080, 1920
	case "4:3":
		return 1440, 1080
	case "3:4":
		return 1080, 1440
	case "1:1", "square", "":
		return 1024, 1024
	default:
		parts := strings.Split(aspect, ":")
		if len(parts) == 2 {
			if a, errA := strconv.Atoi(strings.TrimSpace(parts[0])); errA == nil {
				if b, errB := strconv.Atoi(strings.TrimSpace(parts[1])); errB == nil && a > 0 && b > 0 {
					width := 1024
					return width, int(float64(width) * float64(b) / float64(a))
				}
			}
		}
		return 1024, 1024
	}
}
