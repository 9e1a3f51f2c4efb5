package gemini

import (
	"fmt"
	"strings"
)

// Harm categories covered by the default safety settings.
const (
	HarmCategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"

	BlockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"
)

// GenerationConfig holds the sampling parameters sent with every request.
type GenerationConfig struct {
	Temperature     float64  `json:"temperature" mapstructure:"temperature" yaml:"temperature"`
	TopK            int      `json:"topK" mapstructure:"top_k" yaml:"top_k"`
	TopP            float64  `json:"topP" mapstructure:"top_p" yaml:"top_p"`
	MaxOutputTokens int      `json:"maxOutputTokens" mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	StopSequences   []string `json:"stopSequences" mapstructure:"stop_sequences" yaml:"stop_sequences"`
}

// SafetySetting maps one harm category to a blocking threshold.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// DefaultGenerationConfig returns the fixed sampling parameters.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
		StopSequences:   []string{},
	}
}

// DefaultSafetySettings blocks medium-and-above content in all four categories.
func DefaultSafetySettings() []SafetySetting {
	return SafetySettingsWithThreshold(BlockMediumAndAbove)
}

// SafetySettingsWithThreshold applies threshold to all four harm categories.
func SafetySettingsWithThreshold(threshold string) []SafetySetting {
	threshold = strings.TrimSpace(threshold)
	if threshold == "" {
		threshold = BlockMediumAndAbove
	}
	categories := []string{
		HarmCategoryHarassment,
		HarmCategoryHateSpeech,
		HarmCategorySexuallyExplicit,
		HarmCategoryDangerousContent,
	}
	settings := make([]SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, SafetySetting{Category: category, Threshold: threshold})
	}
	return settings
}

type generateContentRequest struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
	SafetySettings   []SafetySetting  `json:"safetySettings"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

func buildGenerateRequest(text string, cfg GenerationConfig, safety []SafetySetting) (*generateContentRequest, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	if cfg.StopSequences == nil {
		cfg.StopSequences = []string{}
	}
	if len(safety) == 0 {
		safety = DefaultSafetySettings()
	}

	return &generateContentRequest{
		Contents: []requestContent{
			{Parts: []requestPart{{Text: text}}},
		},
		GenerationConfig: cfg,
		SafetySettings:   safety,
	}, nil
}
