package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"afval-classifier/api/internal/util"
)

//go:embed gemini_prompts.yaml
var defaultYAML []byte

// Fallback kinds.
const (
	FallbackError      = "error"
	FallbackNoResponse = "no_response"
	FallbackValidation = "validation_fallback"
)

// Template is one prompt, assembled from four sections.
type Template struct {
	SystemRole      string `yaml:"system_role"`
	TaskDescription string `yaml:"task_description"`
	OutputFormat    string `yaml:"output_format"`
	Constraints     string `yaml:"constraints"`
}

// Render fills the task placeholders and joins all sections with blank lines.
func (t Template) Render(vars map[string]any) string {
	return join(t.SystemRole, t.Body(vars))
}

// Body is Render without the system role, for models that take it separately.
func (t Template) Body(vars map[string]any) string {
	return join(util.FillPlaceholders(t.TaskDescription, vars), t.OutputFormat, t.Constraints)
}

func join(sections ...string) string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

type Entry struct {
	Type       string  `yaml:"afval_type" json:"afval_type"`
	Confidence float64 `yaml:"zekerheid" json:"zekerheid"`
}

// Fallback is a canned validator answer.
type Fallback struct {
	IsWaste         bool     `yaml:"is_afval"`
	Types           []Entry  `yaml:"afval_types"`
	Features        []string `yaml:"kenmerken"`
	Acknowledgement string   `yaml:"bedank_boodschap"`
}

type Set struct {
	Prompts struct {
		ImageAnalysis  Template `yaml:"image_analysis"`
		TextValidation Template `yaml:"text_validation"`
	} `yaml:"gemini_prompts"`
	Fallbacks map[string]Fallback `yaml:"fallback_responses"`
}

// Default returns the table compiled into the binary.
func Default() *Set {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded gemini prompts: %v", err))
	}
	return s
}

// Load reads a prompt table from path; an empty path yields Default().
func Load(path string) (*Set, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts %s: %w", path, err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("prompts %s: %w", path, err)
	}
	return s, nil
}

func Parse(b []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if strings.TrimSpace(s.Prompts.ImageAnalysis.TaskDescription) == "" {
		return nil, fmt.Errorf("image_analysis.task_description is empty")
	}
	if strings.TrimSpace(s.Prompts.TextValidation.TaskDescription) == "" {
		return nil, fmt.Errorf("text_validation.task_description is empty")
	}
	for _, k := range []string{FallbackError, FallbackNoResponse, FallbackValidation} {
		if _, ok := s.Fallbacks[k]; !ok {
			return nil, fmt.Errorf("fallback_responses.%s is missing", k)
		}
	}
	return &s, nil
}

// Fallback returns a copy of the named fallback so callers may modify it.
func (s *Set) Fallback(kind string) Fallback {
	f := s.Fallbacks[kind]
	f.Types = slices.Clone(f.Types)
	f.Features = slices.Clone(f.Features)
	return f
}
