package curriculum

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/abhisek/trackwise/internal/lesson"
	"github.com/abhisek/trackwise/internal/llm"
)

// MaxLessons bounds the size of a generated plan.
const MaxLessons = 60

// StudyPlanSchema is the structured output requested from the model.
// Prerequisites refer to earlier lessons by their 1-based number.
var StudyPlanSchema = &llm.Schema{
	Name:        "study-plan",
	Description: "An ordered study plan of short lessons and exercises",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Short title for the track (3-8 words)",
			},
			"lessons": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": MaxLessons,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string"},
						"type": map[string]any{
							"type": "string",
							"enum": []any{"theory", "exercise"},
						},
						"minutes": map[string]any{
							"type":        "integer",
							"minimum":     5,
							"maximum":     240,
							"description": "Estimated minutes to complete",
						},
						"prerequisites": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "integer"},
							"description": "Numbers of earlier lessons this one builds on",
						},
					},
					"required":             []any{"title", "type", "minutes", "prerequisites"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"title", "lessons"},
		"additionalProperties": false,
	},
}

const studyPlanSystemPrompt = `You are an experienced curriculum designer. You break a learning goal into short, concrete lessons that build on each other, interleaved with exercises that check understanding. Every lesson fits in one sitting.`

// PlanRequest describes the track to generate.
type PlanRequest struct {
	ID      string // derived from the subject when empty
	Subject string
	Goal    string
	Lessons int
}

// GeneratorConfig tunes study-plan generation.
type GeneratorConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultGeneratorConfig returns the generation defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{MaxTokens: 4096, Temperature: 0.4}
}

// Generator turns a subject and goal into a track using an LLM.
type Generator struct {
	provider llm.Provider
	cfg      GeneratorConfig
}

// NewGenerator creates a Generator.
func NewGenerator(provider llm.Provider, cfg GeneratorConfig) *Generator {
	return &Generator{provider: provider, cfg: cfg}
}

type planOutput struct {
	Title   string         `json:"title"`
	Lessons []lessonOutput `json:"lessons"`
}

type lessonOutput struct {
	Title         string `json:"title"`
	Type          string `json:"type"`
	Minutes       int    `json:"minutes"`
	Prerequisites []int  `json:"prerequisites"`
}

// Generate asks the model for a study plan and converts it to a valid
// track. Unit ids are "<track id>-NN". Prerequisites that do not name an
// earlier lesson are dropped.
func (g *Generator) Generate(ctx context.Context, req PlanRequest) (lesson.Track, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return lesson.Track{}, errors.New("subject is required")
	}
	if req.Lessons < 1 || req.Lessons > MaxLessons {
		return lesson.Track{}, fmt.Errorf("lesson count must be between 1 and %d, got %d", MaxLessons, req.Lessons)
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeStudyPlan)
	llmReq := llm.Prompt(studyPlanSystemPrompt, buildPlanMessage(req), StudyPlanSchema, g.cfg.MaxTokens)
	llmReq.Temperature = g.cfg.Temperature

	resp, err := g.provider.Generate(ctx, llmReq)
	if err != nil {
		return lesson.Track{}, fmt.Errorf("generate study plan: %w", err)
	}
	var out planOutput
	if err := resp.Decode(&out); err != nil {
		return lesson.Track{}, err
	}
	return planToTrack(req, out)
}

func buildPlanMessage(req PlanRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	if req.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", req.Goal)
	}
	fmt.Fprintf(&b, "Number of lessons: %d\n", req.Lessons)
	b.WriteString(`
Instructions:
1. Produce exactly the requested number of lessons, in the order they should be studied.
2. Use type "theory" for reading or watching and "exercise" for practice that can be scored out of 100.
3. Give each lesson a realistic duration in minutes.
4. List prerequisites as the numbers (starting at 1) of earlier lessons only.`)
	return b.String()
}

func planToTrack(req PlanRequest, out planOutput) (lesson.Track, error) {
	id := req.ID
	if id == "" {
		id = Slug(req.Subject)
	}
	t := lesson.Track{
		ID:      id,
		Title:   strings.TrimSpace(out.Title),
		Subject: req.Subject,
		Goal:    req.Goal,
	}
	if t.Title == "" {
		t.Title = req.Subject
	}

	ids := make([]string, len(out.Lessons))
	for i, l := range out.Lessons {
		ids[i] = fmt.Sprintf("%s-%02d", id, i+1)
		typ, err := lesson.ParseType(l.Type)
		if err != nil {
			typ = lesson.TypeTheory
		}
		u := lesson.Unit{
			ID:               ids[i],
			Title:            strings.TrimSpace(l.Title),
			EstimatedMinutes: l.Minutes,
			Type:             typ,
		}
		seen := make(map[int]bool)
		for _, n := range l.Prerequisites {
			if n >= 1 && n <= i && !seen[n] {
				seen[n] = true
				u.PrerequisiteIDs = append(u.PrerequisiteIDs, ids[n-1])
			}
		}
		t.Units = append(t.Units, u)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and joins its alphanumeric runs with dashes.
func Slug(s string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if slug == "" {
		return "track"
	}
	return slug
}
