package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/blescan/internal/permission"
)

// Confirm displays a warning box with the given lines and asks a yes/no
// question. Only "y" or "yes" (any case) confirms. The read is abandoned
// when ctx is cancelled.
func Confirm(ctx context.Context, in io.Reader, out io.Writer, title string, lines []string, question string) (bool, error) {
	width := GetTerminalWidth()

	body := []string{
		"",
		lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   %s  %s", WarningMarker, title)),
		"",
	}
	for _, line := range lines {
		body = append(body, lipgloss.NewStyle().Foreground(TextColor).Render("   • "+line))
	}
	body = append(body, "")

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(body, "\n"))

	_, _ = fmt.Fprintln(out, box)
	_, _ = fmt.Fprint(out, PromptStyle.Render(question+" [y/N]: "))

	type answer struct {
		text string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		text, err := bufio.NewReader(in).ReadString('\n')
		answers <- answer{text, err}
	}()

	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(out)
		return false, ctx.Err()
	case a := <-answers:
		_, _ = fmt.Fprintln(out)
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return false, fmt.Errorf("failed to read answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.text)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// PermissionPrompt returns a decision function that asks the user on the
// terminal whether the program may scan for nearby devices.
func PermissionPrompt(in io.Reader, out io.Writer, backend string) permission.DecideFunc {
	return func(ctx context.Context) (bool, error) {
		return Confirm(ctx, in, out,
			"PERMISSION REQUIRED",
			[]string{
				fmt.Sprintf("blescan wants to scan for nearby devices using %s", backend),
				"Device names, identifiers and signal strength will be shown and saved locally",
			},
			"Allow scanning?",
		)
	}
}
