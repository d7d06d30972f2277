package analyst

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/threadlens/v2ex-analyst/internal/config"
)

// analysisFramework is the reading framework the analyst is instructed to
// follow when dissecting a thread.
const analysisFramework = `## Analysis framework

### 1. Core content (what is it saying)
- What is the central claim, in one sentence?
- Which key concepts does the author rely on, and how are they defined?
- How is the argument structured and developed?
- What concrete examples or evidence support the position?

### 2. Context (why was it written)
- Who is the author, and what is their background and stance?
- What situation or debate is this responding to?
- What problem is the author trying to solve, and who do they want to influence?
- What unstated assumptions underlie the argument?

### 3. Critical examination
- What are the strongest likely counterarguments?
- Where does the reasoning leap, gap, or slant?
- Under what conditions does the claim hold, and where are its boundaries?
- Is anything deliberately avoided or downplayed?

### 4. Value extraction
- What reusable framework or method does the author offer?
- What should a practitioner take away? What should a newcomer take away?
- What belief of the reader's might this change?

### 5. Writing craft (optional)
- How are the title, opening, and ending designed?
- What techniques make the piece persuasive?
- What in the writing is worth imitating?
`

const analystInstructions = "You are a professional content analyst. Below is a forum topic " +
	"together with its discussion replies. Work through the framework question by question, " +
	"grounding every answer in the thread itself. Be specific and insightful; avoid generic " +
	"observations. If the thread lacks the information a question needs, say so.\n\n"

// GeminiSubmitter submits aggregated threads to Gemini for analysis.
type GeminiSubmitter struct {
	client         *genai.Client
	model          string
	disableTracing bool
}

func NewGemini(ctx context.Context, cfg *config.Config) (*GeminiSubmitter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiSubmitter{
		client:         client,
		model:          cfg.GeminiModel,
		disableTracing: cfg.DisableTracing,
	}, nil
}

// Submit sends the aggregated thread text for analysis and returns the
// report body. The correlation ID travels as a request header unless tracing
// is disabled.
func (g *GeminiSubmitter) Submit(ctx context.Context, text, correlationID string) (string, error) {
	prompt := analystInstructions + analysisFramework + "\n\n" + text

	var genCfg *genai.GenerateContentConfig
	if !g.disableTracing && correlationID != "" {
		headers := http.Header{}
		headers.Set("X-Correlation-ID", correlationID)
		genCfg = &genai.GenerateContentConfig{
			HTTPOptions: &genai.HTTPOptions{Headers: headers},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}
