package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pyramid/internal/config"
	"github.com/jmylchreest/pyramid/internal/dance"
)

var danceOpts struct {
	file string
}

var danceCmd = &cobra.Command{
	Use:   "dance [TIMELINE]",
	Short: "Check a dance timeline and print its schedule",
	Long: `Parse a dance timeline and print when each step fires.

The timeline is taken from TIMELINE, from --file, or from the config file,
in that order. Steps that land on the same second replace each other;
only the last one is kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDance,
}

func init() {
	rootCmd.AddCommand(danceCmd)

	danceCmd.Flags().StringVarP(&danceOpts.file, "file", "f", "",
		"Read the dance timeline from a file")
}

func runDance(cmd *cobra.Command, args []string) error {
	var text string
	var err error
	switch {
	case len(args) == 1:
		text = args[0]
	case danceOpts.file != "":
		text, err = config.ReadDanceFile(danceOpts.file)
	default:
		text, err = cfg.Play.LoadDance()
	}
	if err != nil {
		return err
	}

	timeline, err := dance.Parse(text)
	if err != nil {
		return err
	}

	if w := timeline.Width(); w > len(cfg.Pins.Numbers) {
		logger.Warn("dance addresses more pins than configured",
			"dance_pins", w, "configured_pins", len(cfg.Pins.Numbers))
	}

	printSchedule(cmd.OutOrStdout(), timeline)
	return nil
}

func printSchedule(w io.Writer, timeline *dance.Timeline) {
	steps := timeline.Steps()
	if len(steps) == 0 {
		fmt.Fprintln(w, "Empty dance")
		return
	}

	onStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	offStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	timeStyle := lipgloss.NewStyle().Width(8).Align(lipgloss.Right)

	for _, step := range steps {
		var cells strings.Builder
		for _, on := range step.States {
			if on {
				cells.WriteString(onStyle.Render("●"))
			} else {
				cells.WriteString(offStyle.Render("○"))
			}
		}
		fmt.Fprintf(w, "%s  %s\n", timeStyle.Render(fmt.Sprintf("%ds", step.At)), cells.String())
	}
}
