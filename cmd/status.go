package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/ncc/internal/cache"
)

var statusCmd = &cobra.Command{
	Use:          "status",
	Short:        "Show the compilation state of every task",
	RunE:         runStatus,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		return err
	}

	tasks, err := store.Tasks()
	if err != nil {
		return err
	}

	printTasks(cmd.OutOrStdout(), store.Root(), tasks)
	return nil
}

func printTasks(w io.Writer, root string, tasks []cache.TaskInfo) {
	if len(tasks) == 0 {
		fmt.Fprintf(w, "no compilation state in %s\n", root)
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TASK", "SOURCES", "HEADERS", "SIZE", "LAST BUILD")

	for _, info := range tasks {
		if info.Busy {
			t.Row(info.ID, "-", "-", humanize.Bytes(uint64(info.Size)), "building")
			continue
		}

		last := "never"
		if !info.UpdatedAt.IsZero() {
			last = humanize.Time(info.UpdatedAt)
		}

		t.Row(info.ID, strconv.Itoa(info.Sources), strconv.Itoa(info.Headers), humanize.Bytes(uint64(info.Size)), last)
	}

	fmt.Fprintln(w, t.String())
}
