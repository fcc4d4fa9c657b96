package test

import (
	"strings"

	"github.com/esdown/esdown/internal/logger"
)

// Produces a line-by-line diff from "old" to "new" based on the longest
// common subsequence of lines.
func Diff(old string, new string, color bool) string {
	a := strings.Split(old, "\n")
	b := strings.Split(new, "\n")

	// lengths[i][j] is the LCS length of a[i:] and b[j:]
	lengths := make([][]int, len(a)+1)
	for i := range lengths {
		lengths[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lengths[i][j] = lengths[i+1][j+1] + 1
			} else if lengths[i+1][j] >= lengths[i][j+1] {
				lengths[i][j] = lengths[i+1][j]
			} else {
				lengths[i][j] = lengths[i][j+1]
			}
		}
	}

	var result []string
	line := func(prefix string, text string, c string) {
		if color {
			result = append(result, c+prefix+text+logger.TerminalColors.Reset)
		} else {
			result = append(result, prefix+text)
		}
	}

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			line(" ", a[i], logger.TerminalColors.Dim)
			i++
			j++
		case lengths[i+1][j] >= lengths[i][j+1]:
			line("-", a[i], logger.TerminalColors.Red)
			i++
		default:
			line("+", b[j], logger.TerminalColors.Green)
			j++
		}
	}
	for ; i < len(a); i++ {
		line("-", a[i], logger.TerminalColors.Red)
	}
	for ; j < len(b); j++ {
		line("+", b[j], logger.TerminalColors.Green)
	}

	return strings.Join(result, "\n")
}
