package console

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 2)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 2)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
)

// PrintBanner writes the startup banner when stdout is a terminal. In
// non-interactive environments (containers, CI) it stays silent and the
// structured logs carry the same information.
func PrintBanner(port int) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Duo-taire server"),
		infoStyle.Render(fmt.Sprintf("listening on :%d", port)),
		infoStyle.Render(fmt.Sprintf("ws endpoint  ws://localhost:%d/ws", port)),
		infoStyle.Render(fmt.Sprintf("health check http://localhost:%d/health", port)),
	)
	fmt.Println(borderStyle.Render(body))
}
