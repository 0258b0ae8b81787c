package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pdnroute/pkg/board"
	"github.com/matzehuels/pdnroute/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// output is where command results are printed. Tests swap it for a buffer.
var output io.Writer = os.Stdout

func stdout() io.Writer { return output }

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(output, styleIconSuccess.Render(iconSuccess)+" "+msg)
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(output, styleIconInfo.Render(iconInfo)+" "+msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(output, "  "+StyleDim.Render(msg))
}

// =============================================================================
// File Output
// =============================================================================

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(output, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// =============================================================================
// Key-Value Output
// =============================================================================

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(output, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Summaries
// =============================================================================

// printStats prints run statistics on a single line.
func printStats(st pipeline.Stats, cached bool) {
	var parts []string
	if st.Nets > 0 {
		parts = append(parts, fmt.Sprintf("%d nets", st.Nets))
	}
	if st.Segments > 0 {
		parts = append(parts, fmt.Sprintf("%d segments", st.Segments))
	}
	if st.Vias > 0 {
		parts = append(parts, fmt.Sprintf("%d vias", st.Vias))
	}

	status := iconFresh
	statusStyle := styleComputed
	if cached {
		status = iconCached
		statusStyle = styleCached
	}
	parts = append(parts, statusStyle.Render(status))

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Fprintln(output, line)
}

// printRouteSummary prints the run statistics and, per net, the lowest
// target voltage against its demand.
func printRouteSummary(res *pipeline.Result) {
	printStats(res.Stats, res.CacheInfo.ReportHit)
	for _, n := range res.Report.Nets {
		worst := -1
		var slack float64
		for i, p := range n.Targets() {
			if s := p.Voltage - p.Demand; worst < 0 || s < slack {
				worst, slack = i, s
			}
		}
		if worst < 0 {
			continue
		}
		p := n.Targets()[worst]
		line := fmt.Sprintf("%-10s port %d at %s V (demand %s V)",
			n.Name, p.Port, formatVolts(p.Voltage), formatVolts(p.Demand))
		if slack < 0 {
			line = StyleWarning.Render(line)
		}
		fmt.Fprintln(output, "  "+line)
	}
}

// printBoardSummary prints the geometry and nets of a board.
func printBoardSummary(b *board.Board) {
	printKeyValue("Grid", fmt.Sprintf("%d × %d cells of %s mm", b.NumX(), b.NumY(), formatFloat(b.Pitch)))
	printKeyValue("Layers", strconv.Itoa(b.NumLayers()))
	printKeyValue("Traces", strconv.Itoa(len(b.Traces)))
	for _, n := range b.Nets {
		src := n.Source()
		printKeyValue(n.Name, fmt.Sprintf("%s V source, %d targets", formatVolts(src.Voltage), len(n.Targets())))
	}
}

func formatVolts(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(output, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}
