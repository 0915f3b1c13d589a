package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/livewindow/internal/window"
	"github.com/spf13/cobra"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List top-level windows",
	Long: `List the top-level windows a live window source can capture.

The DESCRIPTOR column is the value to use for a source's window option.`,
	Example: `  # List visible windows in table format (default)
  livewindow windows

  # Include minimized windows
  livewindow windows --all

  # List windows in JSON format
  livewindow windows --format json`,
	RunE: runWindows,
}

var (
	windowsFormat string
	windowsAll    bool
)

func init() {
	rootCmd.AddCommand(windowsCmd)

	windowsCmd.Flags().StringVarP(&windowsFormat, "format", "f", "table", "output format (table or json)")
	windowsCmd.Flags().BoolVarP(&windowsAll, "all", "a", false, "include minimized windows")
}

type windowRow struct {
	window.Info
	Descriptor string `json:"descriptor"`
}

func runWindows(cmd *cobra.Command, args []string) error {
	sys, err := window.NewX11System()
	if err != nil {
		return fmt.Errorf("failed to connect to X11: %w", err)
	}
	defer sys.Close()

	var rows []windowRow
	for info := range sys.Windows(!windowsAll) {
		rows = append(rows, windowRow{
			Info:       info,
			Descriptor: window.IdentityOf(info, window.PriorityTitle).Descriptor(),
		})
	}

	switch windowsFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case "table":
		return printWindowsTable(rows)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", windowsFormat)
	}
}

func printWindowsTable(rows []windowRow) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "HANDLE\tTITLE\tCLASS\tEXECUTABLE\tPID\tMINIMIZED\tDESCRIPTOR")
	fmt.Fprintln(w, "------\t-----\t-----\t----------\t---\t---------\t----------")

	for _, r := range rows {
		minimized := "No"
		if r.Minimized {
			minimized = "Yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", r.Handle, truncate(r.Title, 40), r.Class, r.Executable, r.PID, minimized, r.Descriptor)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
