package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/coastscore/internal/models"
)

// Generator makes backdrop photos for share cards with OpenAI's image API.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator creates a backdrop generator. It errors without an API key so
// callers can treat generation as optional.
func NewGenerator(apiKey string, opts ...option.RequestOption) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("no OpenAI API key configured")
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Generator{
		client: client,
		model:  "gpt-image-1",
	}, nil
}

var labelScenes = map[models.Label]string{
	models.LabelPerfect: "glassy turquoise sea, gentle lapping waves, clear sky, soft morning light",
	models.LabelGood:    "calm blue sea with small waves, a few clouds, warm light",
	models.LabelMeh:     "choppy grey-green sea, hazy sky, flat light",
	models.LabelBad:     "rough whitecapped sea, strong wind blowing sand, heavy clouds",
	models.LabelNope:    "stormy sea with crashing waves over the breakwater, dark sky",
}

var modeSubjects = map[models.Mode]string{
	models.ModeSwimSolo: "an empty swimming beach with a lifeguard tower",
	models.ModeSwimDog:  "a dog-friendly beach with paw prints in the sand",
	models.ModeRunSolo:  "a seaside promenade running path",
	models.ModeRunDog:   "a seaside promenade with a dog lead looped over a bench",
}

// BuildPrompt describes the backdrop for a label and mode.
func BuildPrompt(label models.Label, mode models.Mode) string {
	scene, ok := labelScenes[label]
	if !ok {
		scene = labelScenes[models.LabelMeh]
	}
	subject, ok := modeSubjects[mode]
	if !ok {
		subject = modeSubjects[models.ModeSwimSolo]
	}
	return fmt.Sprintf("Wide photographic landscape of %s on the Mediterranean coast of Tel Aviv, %s. "+
		"No people, no text, no logos. Leave the lower third uncluttered for an overlay.", subject, scene)
}

// Generate returns a PNG backdrop for label and mode.
func (g *Generator) Generate(ctx context.Context, label models.Label, mode models.Mode) ([]byte, error) {
	log.Printf("imagegen: generating backdrop for %s", BackdropKey(label, mode))

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:        g.model,
		Prompt:       BuildPrompt(label, mode),
		Size:         openai.ImageGenerateParamsSize1536x1024,
		Quality:      openai.ImageGenerateParamsQualityLow,
		OutputFormat: openai.ImageGenerateParamsOutputFormatPNG,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("no image data returned")
	}

	imageBytes, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	log.Printf("imagegen: generated %s (%d bytes)", BackdropKey(label, mode), len(imageBytes))
	return imageBytes, nil
}
