package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// PromptTemplate is a system/user pair whose user text carries {placeholders}.
type PromptTemplate struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Render substitutes {key} placeholders in the user template.
func (p PromptTemplate) Render(vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(p.User)
}

// LanguagePrompts holds the per-language fragments injected into templates.
type LanguagePrompts struct {
	QuizInstruction           string   `yaml:"quiz_instruction"`
	QuizExample               string   `yaml:"quiz_example"`
	InterviewInstruction      string   `yaml:"interview_instruction"`
	InterviewExample          string   `yaml:"interview_example"`
	EvalInstruction           string   `yaml:"eval_instruction"`
	DefaultInterviewQuestions []string `yaml:"default_interview_questions"`
}

// Prompts is the prompt catalog used by the AI-facing usecases.
type Prompts struct {
	Quiz               PromptTemplate             `yaml:"quiz"`
	CVInfo             PromptTemplate             `yaml:"cv_info"`
	Feedback           PromptTemplate             `yaml:"feedback"`
	InterviewQuestions PromptTemplate             `yaml:"interview_questions"`
	InterviewEval      PromptTemplate             `yaml:"interview_eval"`
	Languages          map[string]LanguagePrompts `yaml:"languages"`
}

// Language returns the fragments for lang, falling back to English.
func (p *Prompts) Language(lang string) LanguagePrompts {
	if lp, ok := p.Languages[lang]; ok {
		return lp
	}
	return p.Languages["en"]
}

// LoadPrompts reads the catalog from path, or the embedded default when path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	data := defaultPrompts
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("op=config.LoadPrompts: %w", err)
		}
		data, err = os.ReadFile(absPath) //nolint:gosec // operator-provided path
		if err != nil {
			return nil, fmt.Errorf("op=config.LoadPrompts: read %s: %w", absPath, err)
		}
	}
	return parsePrompts(data)
}

// DefaultPrompts returns the embedded catalog and panics if it is malformed.
func DefaultPrompts() *Prompts {
	p, err := parsePrompts(defaultPrompts)
	if err != nil {
		panic(err)
	}
	return p
}

func parsePrompts(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("op=config.parsePrompts: %w", err)
	}
	if strings.TrimSpace(p.Quiz.User) == "" {
		return nil, fmt.Errorf("op=config.parsePrompts: quiz prompt is empty")
	}
	if _, ok := p.Languages["en"]; !ok {
		return nil, fmt.Errorf("op=config.parsePrompts: missing en language block")
	}
	return &p, nil
}
