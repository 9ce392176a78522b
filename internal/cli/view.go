package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/okian/profiles/internal/tui"
	"github.com/okian/profiles/pkg/logger"
)

func newViewCommand(g *globals) *cobra.Command {
	var saveDir string
	cmd := &cobra.Command{
		Use:   "view FILE",
		Short: "Upload a spreadsheet and browse the scored profiles interactively",
		Long: `Opens an interactive table of the scored profiles.

Keys:
  s            toggle score order
  ←/h  →/l     previous / next page
  d            save the processed file
  q            quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Log lines on stderr would land inside the running screen.
			quiet := logger.Nop()
			sess, err := selectFile(g, args[0], quiet)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()
			m := tui.New(cmd.Context(), sess, saveDir, quiet)
			p := tea.NewProgram(m,
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run viewer: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&saveDir, "dir", "", "directory the processed file is saved into (default: working directory)")
	return cmd
}
