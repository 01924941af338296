// Package formatter renders transformation reports for terminal
// output.
package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	tt "github.com/fortress-labs/floop/internal/types"
)

var (
	passStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	routineStyle = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgWhite)
	summaryStyle = color.New(color.FgGreen, color.Bold)
	noneStyle    = color.New(color.FgHiBlack)
)

// GenerateFormattedChanges formats applied transformations into a
// human-readable report, grouped by file in sorted order.
func GenerateFormattedChanges(changes []tt.Change) string {
	if len(changes) == 0 {
		return noneStyle.Sprint("no transformations applied\n")
	}

	byFile := map[string][]tt.Change{}
	var files []string
	for _, c := range changes {
		if _, ok := byFile[c.Filename]; !ok {
			files = append(files, c.Filename)
		}
		byFile[c.Filename] = append(byFile[c.Filename], c)
	}
	sort.Strings(files)

	var builder strings.Builder
	for _, file := range files {
		name := file
		if name == "" {
			name = "<source>"
		}
		builder.WriteString(fileStyle.Sprintf("%s\n", name))
		for _, c := range byFile[file] {
			builder.WriteString("  ")
			builder.WriteString(passStyle.Sprintf("%s", c.Pass))
			builder.WriteString(noneStyle.Sprint(" in "))
			builder.WriteString(routineStyle.Sprintf("%s", c.Routine))
			builder.WriteString(noneStyle.Sprint(": "))
			builder.WriteString(messageStyle.Sprintf("%s\n", c.Message))
		}
	}
	builder.WriteString(summaryStyle.Sprintf("%s applied\n", pluralize(len(changes), "transformation")))
	return builder.String()
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
