// internal/setup/prompter.go
package setup

import (
	"fmt"

	"github.com/chzyer/readline"
)

// ReadlinePrompter asks questions on the interactive console.
type ReadlinePrompter struct {
	rl *readline.Instance
}

// NewReadlinePrompter creates a console prompter.
func NewReadlinePrompter() (*ReadlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &ReadlinePrompter{rl: rl}, nil
}

// Ask prints the prompt and blocks for one line of input.
func (p *ReadlinePrompter) Ask(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if err != nil {
		return "", fmt.Errorf("console input failed: %w", err)
	}
	return line, nil
}

// Close releases the console.
func (p *ReadlinePrompter) Close() error {
	return p.rl.Close()
}
