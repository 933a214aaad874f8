package interactive

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/adamancini/shimsync/internal/catalog"
	"github.com/adamancini/shimsync/internal/credential"
)

// selectHeight caps the visible rows of the game list.
const selectHeight = 15

var runFormFunc = func(ctx context.Context, form *huh.Form) error { return form.RunWithContext(ctx) }

// HuhUI implements UI using charmbracelet/huh.
type HuhUI struct{}

// NewHuhUI creates a new HuhUI.
func NewHuhUI() *HuhUI {
	return &HuhUI{}
}

func (ui *HuhUI) runForm(ctx context.Context, form *huh.Form) (bool, error) {
	form.WithProgramOptions(tea.WithOutput(os.Stderr))
	err := runFormFunc(ctx, form)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Select renders the matches as a filterable single-choice list.
func (ui *HuhUI) Select(ctx context.Context, query string, apps []catalog.App) (catalog.App, bool, error) {
	opts := make([]huh.Option[int], len(apps))
	for i, app := range apps {
		opts[i] = huh.NewOption(fmt.Sprintf("%s [%d]", app.Name, app.AppID), i)
	}

	choice := 0
	ok, err := ui.runForm(ctx, huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(fmt.Sprintf("Select game matching %q", query)).
				Options(opts...).
				Height(selectHeight).
				Value(&choice),
		),
	))
	if err != nil || !ok {
		return catalog.App{}, false, err
	}
	if choice < 0 || choice >= len(apps) {
		return catalog.App{}, false, nil
	}
	return apps[choice], true, nil
}

// PromptCredentials renders a username input and a masked password input.
func (ui *HuhUI) PromptCredentials(ctx context.Context) (credential.Credentials, error) {
	var creds credential.Credentials
	notEmpty := func(s string) error {
		if s == "" {
			return fmt.Errorf("required")
		}
		return nil
	}

	ok, err := ui.runForm(ctx, huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Steam username").
				Validate(notEmpty).
				Value(&creds.Username),
			huh.NewInput().
				Title("Steam password").
				EchoMode(huh.EchoModePassword).
				Validate(notEmpty).
				Value(&creds.Password),
		),
	))
	if err != nil {
		return credential.Credentials{}, err
	}
	if !ok {
		return credential.Credentials{}, fmt.Errorf("credential entry cancelled")
	}
	return creds, nil
}
