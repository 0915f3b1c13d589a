package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/livewindow/internal/config"
	"github.com/bryanchriswhite/livewindow/internal/source"
	"github.com/spf13/cobra"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage sources",
	Long: `Add, list and remove sources in the configuration file.

Changes take effect the next time the server starts. Use the HTTP API to
change sources of a running server.`,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourceList,
}

var sourceAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a source to the active scene",
	Example: `  # Capture a window by class, surviving title changes
  livewindow source add editor --window ":Code:code" --priority class

  # Capture including the window frame, without the cursor
  livewindow source add term --window "build log:Alacritty" --border --cursor=false

  # Add a text label
  livewindow source add caption --type text_label --text "Live" --x 20 --y 20`,
	Args: cobra.ExactArgs(1),
	RunE: runSourceAdd,
}

var sourceRemoveCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"rm"},
	Short:   "Remove a source and its scene items",
	Args:    cobra.ExactArgs(1),
	RunE:    runSourceRemove,
}

var (
	sourceListFormat string
	sourceAdd        config.SourceConfig
	sourceCursor     bool
	sourceX, sourceY int
)

func init() {
	rootCmd.AddCommand(sourceCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)

	sourceListCmd.Flags().StringVarP(&sourceListFormat, "format", "f", "table", "output format (table or json)")

	flags := sourceAddCmd.Flags()
	flags.StringVar(&sourceAdd.Type, "type", source.TypeLiveWindow, "source type (live_window_capture or text_label)")
	flags.StringVar(&sourceAdd.Window, "window", "", "window descriptor, title:class:executable")
	flags.StringVar(&sourceAdd.Priority, "priority", "title", "match priority (title, class or executable)")
	flags.BoolVar(&sourceAdd.Border, "border", false, "capture the window frame")
	flags.BoolVar(&sourceCursor, "cursor", true, "draw the cursor")
	flags.BoolVar(&sourceAdd.Compatibility, "compatibility", false, "copy from the screen instead of the window buffer")
	flags.StringVar(&sourceAdd.Text, "text", "", "label text")
	flags.StringVar(&sourceAdd.Color, "color", "", "label color, #rrggbb")
	flags.StringVar(&sourceAdd.Background, "background", "", "label background, #rrggbb")
	flags.IntVar(&sourceX, "x", 0, "initial x position")
	flags.IntVar(&sourceY, "y", 0, "initial y position")
}

func runSourceList(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	sources := configMgr.Get().Sources

	switch sourceListFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(sources)
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "NAME\tTYPE\tWINDOW\tPRIORITY\tBORDER\tCURSOR")
		fmt.Fprintln(w, "----\t----\t------\t--------\t------\t------")
		for _, sc := range sources {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\n", sc.Name, sc.Type, sc.Window, sc.Priority, sc.Border, sc.CursorEnabled())
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", sourceListFormat)
	}
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sc := sourceAdd
	sc.Name = args[0]
	if sc.Type == source.TypeLiveWindow {
		if !sourceCursor {
			off := false
			sc.Cursor = &off
		}
	} else {
		sc.Priority = ""
	}

	if err := configMgr.AddSource(sc, config.ItemConfig{X: sourceX, Y: sourceY}); err != nil {
		return err
	}
	fmt.Printf("Added source %s (%s)\n", sc.Name, sc.Type)
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := configMgr.RemoveSource(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed source %s\n", args[0])
	return nil
}
