// Package content generates landing page copy with a Claude model on AWS
// Bedrock. Prompts ask for a strict JSON reply shaped to the requested kind;
// anything else is reported as an error and never patched up.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/ignite/leadpage/internal/domain"
	"github.com/ignite/leadpage/internal/pkg/logger"
	"github.com/ignite/leadpage/internal/service/landing"
)

// ErrRateLimited is returned when Bedrock throttles the request.
var ErrRateLimited = errors.New("content model rate limited")

// DefaultModelID is used when no model is configured.
const DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"

// InvokeClient is the subset of the Bedrock runtime client the generator uses.
type InvokeClient interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Options tune the model call.
type Options struct {
	ModelID     string
	MaxTokens   int
	Temperature float64
	Language    string // language the copy is written in, e.g. "Indonesian"
}

// Generator implements landing.ContentGenerator.
type Generator struct {
	client InvokeClient
	opts   Options
}

var _ landing.ContentGenerator = (*Generator)(nil)

// NewGenerator wraps an existing client.
func NewGenerator(client InvokeClient, opts Options) *Generator {
	if opts.ModelID == "" {
		opts.ModelID = DefaultModelID
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1500
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.7
	}
	if opts.Language == "" {
		opts.Language = "Indonesian"
	}
	return &Generator{client: client, opts: opts}
}

// NewBedrockGenerator loads the default AWS credential chain for region and
// returns a generator backed by a real Bedrock runtime client.
func NewBedrockGenerator(ctx context.Context, region string, opts Options) (*Generator, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	g := NewGenerator(bedrockruntime.NewFromConfig(cfg), opts)
	logger.Info("content generator initialized", "model", g.opts.ModelID, "region", region)
	return g, nil
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature,omitempty"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate asks the model for content of req.Kind.
func (g *Generator) Generate(ctx context.Context, req landing.ContentRequest) (*landing.GeneratedContent, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        g.opts.MaxTokens,
		System:           systemPrompt(g.opts.Language),
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: prompt}},
		}},
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.opts.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		var throttled *types.ThrottlingException
		if errors.As(err, &throttled) {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("bedrock invoke: %w", err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("model reply truncated at %d tokens", resp.Usage.OutputTokens)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}

	gen, err := decodeReply(req.Kind, text.String())
	if err != nil {
		return nil, err
	}

	logger.Debug("content generated", "kind", string(req.Kind),
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	return gen, nil
}

func systemPrompt(language string) string {
	return "You write concise, persuasive copy for small-business product landing pages " +
		"that sell through WhatsApp. Write in " + language + ". " +
		"Reply with a single JSON object and nothing else: no prose, no markdown."
}

func buildPrompt(req landing.ContentRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Product name: %s\nProduct description: %s\n\n", req.ProductName, req.ProductDescription)

	switch req.Kind {
	case landing.ContentBenefits:
		fmt.Fprintf(&b, "Write %d short benefit statements (max 80 characters each).\n", domain.MaxBenefits-2)
		b.WriteString(`Reply as {"benefits": ["..."]}`)
	case landing.ContentTestimonials:
		fmt.Fprintf(&b, "Write %d realistic customer testimonials with a first name and a one or two sentence quote.\n", domain.MaxTestimonials/2)
		b.WriteString(`Reply as {"testimonials": [{"name": "...", "quote": "..."}]}`)
	case landing.ContentSEO:
		fmt.Fprintf(&b, "Write an SEO title (max 60 characters), a meta description (max 155 characters) and up to %d keywords.\n", domain.MaxSEOKeywords)
		b.WriteString(`Reply as {"seo": {"title": "...", "description": "...", "keywords": ["..."]}}`)
	case landing.ContentPricingPackages:
		if req.BasePrice != nil {
			fmt.Fprintf(&b, "Base price: %.0f %s\n", *req.BasePrice, req.Currency)
		}
		b.WriteString("Propose 3 pricing packages built around the base price, the middle one highlighted. " +
			"Prices are plain numbers without currency symbols or separators. " +
			"Add original_price only for a discounted package, and make it higher than price.\n")
		b.WriteString(`Reply as {"pricing_packages": [{"name": "...", "price": 0, "features": ["..."], "badge": "...", "is_highlighted": false, "cta_text": "..."}]}`)
	default:
		return "", fmt.Errorf("unknown content kind %q", req.Kind)
	}
	return b.String(), nil
}

// decodeReply parses the model text. Models sometimes wrap JSON in a
// markdown fence despite instructions; the fence is stripped, nothing else.
func decodeReply(kind landing.ContentKind, text string) (*landing.GeneratedContent, error) {
	raw := strings.TrimSpace(text)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}
	if raw == "" {
		return nil, fmt.Errorf("empty model reply")
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var gen landing.GeneratedContent
	if err := dec.Decode(&gen); err != nil {
		return nil, fmt.Errorf("malformed model reply: %w", err)
	}
	gen.Kind = kind
	return &gen, nil
}
