// Package assist adds model-written analysis notes to tasks.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/logging"
)

// NotesHeader introduces the appended analysis in a task description.
const NotesHeader = "AI Generated Analysis:"

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("AI notes are disabled: set assist.api_key or ANTHROPIC_API_KEY")

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Config holds model settings.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
	BaseURL   string // optional API endpoint override
}

// DefaultConfig returns the default model settings.
func DefaultConfig() Config {
	return Config{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 512,
		Timeout:   60 * time.Second,
	}
}

// Anthropic is a Completer backed by the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropic returns a Completer, or ErrDisabled when cfg has no key.
func NewAnthropic(cfg Config) (*Anthropic, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}, nil
}

// Complete sends one user turn and returns the concatenated text reply.
func (a *Anthropic) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("model returned no text")
	}
	return text, nil
}

// Tasks is the task store surface Notes needs. *store.TaskStore implements it.
type Tasks interface {
	Get(id string) (*schema.Task, bool)
	Update(ctx context.Context, id string, patch func(*schema.Task)) (*schema.Task, error)
}

// Projects resolves project names for the prompt.
type Projects interface {
	Get(id string) (*schema.Project, bool)
}

// Options tunes one Notes.Analyze call.
type Options struct {
	// Escalate raises the task's priority by one step.
	Escalate bool
	Now      time.Time
}

// Notes writes analysis notes onto tasks.
type Notes struct {
	completer Completer
	tasks     Tasks
	projects  Projects
	logger    logrus.FieldLogger
}

// NewNotes wires a completer to the task and project stores. projects may be nil.
func NewNotes(c Completer, tasks Tasks, projects Projects, logger logrus.FieldLogger) *Notes {
	return &Notes{completer: c, tasks: tasks, projects: projects, logger: logging.Component(logger, "assist")}
}

const systemPrompt = `You help a solo operator triage work on a personal Kanban board.
Reply with three to five short bullet lines, each starting with "- ".
Cover urgency relative to the due date, risks or dependencies worth checking, and a rough effort estimate.
No preamble and no closing remarks.`

// Prompt renders the user prompt for t.
func (n *Notes) Prompt(t *schema.Task, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", t.Description)
	}
	fmt.Fprintf(&b, "Status: %s\nPriority: %s\n", t.Status, t.Priority)
	if t.DueDate != "" {
		fmt.Fprintf(&b, "Due: %s (today is %s)\n", t.DueDate, now.Format(schema.DateLayout))
	}
	if t.StalledAt != nil {
		fmt.Fprintf(&b, "Stalled since: %s\n", t.StalledAt.Format(time.RFC3339))
	}
	if n.projects != nil && t.ProjectID != "" {
		if p, ok := n.projects.Get(t.ProjectID); ok {
			fmt.Fprintf(&b, "Project: %s (%s, %s)\n", p.Name, p.Type, p.Status)
		}
	}
	if t.Assignee != "" {
		fmt.Fprintf(&b, "Assignee: %s\n", t.Assignee)
	}
	return b.String()
}

// Analyze asks the model about task id and appends its answer to the
// description under NotesHeader.
func (n *Notes) Analyze(ctx context.Context, id string, opts Options) (*schema.Task, error) {
	if n.completer == nil {
		return nil, ErrDisabled
	}
	t, ok := n.tasks.Get(id)
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	text, err := n.completer.Complete(ctx, systemPrompt, n.Prompt(t, opts.Now))
	if err != nil {
		return nil, err
	}
	n.logger.WithField("task", id).Debug("analysis received")

	return n.tasks.Update(ctx, id, func(t *schema.Task) {
		t.Description = AppendNotes(t.Description, text)
		if opts.Escalate {
			t.Priority = Escalate(t.Priority)
		}
	})
}

// AppendNotes adds notes under NotesHeader, separated from any existing
// description by a blank line.
func AppendNotes(description, notes string) string {
	block := NotesHeader + "\n" + strings.TrimSpace(notes)
	if strings.TrimSpace(description) == "" {
		return block
	}
	return strings.TrimRight(description, "\n") + "\n\n" + block
}

// Escalate returns the next more urgent priority. Critical stays Critical.
func Escalate(p schema.Priority) schema.Priority {
	switch p {
	case schema.PriorityLow:
		return schema.PriorityMedium
	case schema.PriorityMedium:
		return schema.PriorityHigh
	default:
		return schema.PriorityCritical
	}
}
