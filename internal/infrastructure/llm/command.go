package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

// waitDelay bounds how long output pipes may outlive a killed command.
const waitDelay = 2 * time.Second

// CommandReviewer runs an external CLI with the prompt as its last argument
// and parses the review from its standard output.
type CommandReviewer struct {
	command      string
	args         []string
	systemPrompt string
}

var _ ports.Reviewer = (*CommandReviewer)(nil)

// NewCommandReviewer builds a reviewer from configuration.
func NewCommandReviewer(cfg config.EnrichmentConfig) *CommandReviewer {
	return &CommandReviewer{
		command:      cfg.Command,
		args:         append([]string(nil), cfg.Args...),
		systemPrompt: cfg.SystemPrompt,
	}
}

// Review executes the command; the caller's context bounds its runtime.
func (c *CommandReviewer) Review(ctx context.Context, items []domain.Item) (*domain.Review, error) {
	if c.command == "" {
		return nil, fmt.Errorf("reviewer command is not configured")
	}

	prompt, err := BuildPrompt(items)
	if err != nil {
		return nil, err
	}
	prompt = safePrompt(c.systemPrompt) + "\n\n" + prompt

	args := append(append([]string(nil), c.args...), prompt)
	cmd := exec.CommandContext(ctx, c.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return nil, fmt.Errorf("run %s: %w: %s", c.command, err, msg)
	}

	return ParseReview(stdout.String(), items)
}
