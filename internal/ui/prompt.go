package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/huh"
)

// Choice is what the user did with a suggested correction.
type Choice int

const (
	ChoiceDecline Choice = iota
	ChoiceAccept
	ChoiceTeach
)

func (c Choice) String() string {
	switch c {
	case ChoiceAccept:
		return "accept"
	case ChoiceTeach:
		return "teach"
	default:
		return "decline"
	}
}

// Question is a correction offered to the user.
type Question struct {
	Input string
	Line  string
	Note  string
}

// Answer carries the choice and, for ChoiceTeach, the command the user typed.
type Answer struct {
	Choice Choice
	Teach  string
}

// Prompter asks the user about a correction.
type Prompter interface {
	Ask(q Question) (Answer, error)
}

// FormPrompter asks with a huh form. Esc and ctrl+c decline.
type FormPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p FormPrompter) keyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "decline"))
	return km
}

func (p FormPrompter) run(group *huh.Group) error {
	form := huh.NewForm(group).
		WithKeyMap(p.keyMap()).
		WithShowHelp(false)
	if p.In != nil {
		form = form.WithInput(p.In)
	}
	if p.Out != nil {
		form = form.WithOutput(p.Out)
	}
	return form.Run()
}

// Ask shows the suggestion and waits for a choice.
func (p FormPrompter) Ask(q Question) (Answer, error) {
	choice := ChoiceAccept
	title := fmt.Sprintf("%s → %s", Typo(q.Input), Command(q.Line))

	err := p.run(huh.NewGroup(
		huh.NewSelect[Choice]().
			Title(title).
			Description(q.Note).
			Options(
				huh.NewOption("Run it", ChoiceAccept),
				huh.NewOption("No thanks", ChoiceDecline),
				huh.NewOption("Teach me the right command", ChoiceTeach),
			).
			Value(&choice),
	))
	if errors.Is(err, huh.ErrUserAborted) {
		return Answer{Choice: ChoiceDecline}, nil
	}
	if err != nil {
		return Answer{}, err
	}
	if choice != ChoiceTeach {
		return Answer{Choice: choice}, nil
	}

	first, _, _ := strings.Cut(q.Input, " ")
	var taught string
	err = p.run(huh.NewGroup(
		huh.NewInput().
			Title(fmt.Sprintf("What should %s have been?", Typo(first))).
			Value(&taught).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("enter a command")
				}
				return nil
			}),
	))
	if errors.Is(err, huh.ErrUserAborted) {
		return Answer{Choice: ChoiceDecline}, nil
	}
	if err != nil {
		return Answer{}, err
	}
	return Answer{Choice: ChoiceTeach, Teach: strings.Join(strings.Fields(taught), " ")}, nil
}
