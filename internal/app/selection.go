package app

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/manifoldco/promptui"

	"dropmirror/internal/mirror"
)

// RunDirPrefix starts the name of every run directory.
const RunDirPrefix = "Dropmark Download "

// runDirLayout formats the run timestamp, e.g. "20240309 - 14:05".
const runDirLayout = "20060102 - 15:04"

// ErrNoSelection is returned when the prompt is closed or interrupted before
// a choice is made.
var ErrNoSelection = errors.New("no selection made")

// Selection is the user's answer to the collection menu. Exactly one of
// All, Collection, or Manual is meaningful.
type Selection struct {
	All        bool
	Collection *mirror.Collection
	Manual     string
}

// Mode returns the history mode for the selection.
func (s Selection) Mode() string {
	switch {
	case s.All:
		return ModeAll
	case s.Manual != "":
		return ModeManual
	default:
		return ModeSelected
	}
}

// RunRoot returns the directory a run started at now writes into.
func RunRoot(outputDir string, now time.Time) string {
	return filepath.Join(outputDir, RunDirPrefix+now.Format(runDirLayout))
}

// Menu entries shown after the collections.
const (
	menuAll    = "Download All Found Collections"
	menuManual = "Enter Collection ID/URL Manually"
)

// Prompter asks the user questions.
type Prompter interface {
	// Select returns the index of the chosen item.
	Select(label string, items []string) (int, error)
	// Input returns a line of text accepted by validate.
	Input(label string, validate func(string) error) (string, error)
}

// TerminalPrompter asks through interactive promptui widgets. Nil streams
// default to the process's stdin and stdout.
type TerminalPrompter struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

func (p TerminalPrompter) Select(label string, items []string) (int, error) {
	sel := promptui.Select{
		Label:  label,
		Items:  items,
		Size:   15,
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
	}
	i, _, err := sel.Run()
	if err != nil {
		return 0, promptError(err)
	}
	return i, nil
}

func (p TerminalPrompter) Input(label string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: validate,
		Stdin:    p.Stdin,
		Stdout:   p.Stdout,
	}
	answer, err := prompt.Run()
	if err != nil {
		return "", promptError(err)
	}
	return strings.TrimSpace(answer), nil
}

// promptError maps an interrupted or closed prompt to ErrNoSelection.
func promptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return fmt.Errorf("%w: %w", ErrNoSelection, err)
	}
	return fmt.Errorf("reading selection: %w", err)
}

// PromptSelection offers the collections plus the "all" and "manual" entries
// and returns the user's choice. The manual entry asks for an id or URL
// until a non-blank answer is given.
func PromptSelection(p Prompter, out io.Writer, collections []mirror.Collection) (Selection, error) {
	if len(collections) == 0 {
		fmt.Fprintln(out, "No collections found in activity feed.")
	}

	items := make([]string, 0, len(collections)+2)
	for _, c := range collections {
		items = append(items, c.Name)
	}
	items = append(items, menuAll, menuManual)

	i, err := p.Select("Select a collection to download", items)
	if err != nil {
		return Selection{}, err
	}

	switch {
	case i >= 0 && i < len(collections):
		c := collections[i]
		return Selection{Collection: &c}, nil
	case i == len(collections):
		return Selection{All: true}, nil
	case i == len(collections)+1:
		raw, err := p.Input("Enter Collection ID or URL", requireAnswer)
		if err != nil {
			return Selection{}, err
		}
		return Selection{Manual: strings.TrimSpace(raw)}, nil
	default:
		return Selection{}, fmt.Errorf("selection %d out of range", i)
	}
}

func requireAnswer(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("an id or URL is required")
	}
	return nil
}
