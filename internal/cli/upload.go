package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/okian/profiles/internal/app"
	"github.com/okian/profiles/internal/domain/table"
	"github.com/okian/profiles/pkg/logger"
)

type uploadFlags struct {
	order    string
	page     int
	download string
}

func newUploadCommand(g *globals) *cobra.Command {
	f := &uploadFlags{}
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a spreadsheet and print one page of scored profiles",
		Example: `  profiles upload people.xlsx
  profiles upload people.xlsx --order asc --page 2
  profiles upload people.xlsx --download ./out/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, g, f, args[0])
		},
	}
	cmd.Flags().StringVar(&f.order, "order", string(table.Descending), "score order: asc or desc")
	cmd.Flags().IntVar(&f.page, "page", 1, "page to print")
	cmd.Flags().StringVar(&f.download, "download", "", "save the processed file to PATH (a directory gets the default name)")
	return cmd
}

func runUpload(cmd *cobra.Command, g *globals, f *uploadFlags, file string) error {
	ctx := cmd.Context()
	order, err := table.ParseOrder(f.order)
	if err != nil {
		return err //nolint:wrapcheck // already names the bad value
	}

	sess, err := selectFile(g, file, g.log)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()
	if err := sess.Upload(ctx); err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(file), err)
	}
	if err := sess.SetOrder(order); err != nil {
		return err //nolint:wrapcheck // sentinel from table
	}
	if f.page != 1 {
		if err := sess.SetPage(f.page); err != nil {
			return err //nolint:wrapcheck // sentinel from table
		}
	}

	printPage(cmd.OutOrStdout(), sess.Snapshot())

	if f.download == "" {
		return nil
	}
	path, err := sess.SaveDownload(ctx, f.download)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if path != "" {
		g.log.Info(ctx, "processed file saved", logger.String("path", path))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", path)
	}
	return nil
}

// selectFile reads file into a fresh session logging to l. The caller
// closes the session.
func selectFile(g *globals, file string, l logger.Logger) (*app.Session, error) {
	in, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	defer func() { _ = in.Close() }()

	sess := g.newSession(l)
	if err := sess.SelectFrom(file, in); err != nil {
		_ = sess.Close()
		return nil, err //nolint:wrapcheck // names the file already
	}
	return sess, nil
}

// printPage writes the current page as a table followed by the page labels.
func printPage(w io.Writer, snap table.Snapshot) {
	if snap.Total == 0 {
		_, _ = fmt.Fprintln(w, "no profiles")
		return
	}

	rows := make([][]string, 0, len(snap.Rows))
	for _, p := range snap.Rows {
		rows = append(rows, []string{p.FullName, p.URL, strconv.FormatFloat(p.Score, 'f', -1, 64)})
	}
	t := lgtable.New().
		Border(lipgloss.NormalBorder()).
		Headers("Full Name", "LinkedIn URL", "Score").
		Rows(rows...)

	labels := make([]string, 0, len(snap.Labels))
	for _, l := range snap.Labels {
		if l.Clickable() && l.Page == snap.Page {
			labels = append(labels, "["+l.String()+"]")
			continue
		}
		labels = append(labels, l.String())
	}

	_, _ = fmt.Fprintf(w, "Profile Scores (%d, sorted %s)\n", snap.Total, strings.ToLower(snap.Order.Title()))
	_, _ = fmt.Fprintln(w, t.String())
	_, _ = fmt.Fprintf(w, "Page %d of %d: %s\n", snap.Page, snap.TotalPages, strings.Join(labels, " "))
}
