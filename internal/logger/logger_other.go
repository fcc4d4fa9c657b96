//go:build !darwin && !linux
// +build !darwin,!linux

package logger

import (
	"os"
	"strings"

	"golang.org/x/term"
)

const SupportsColorEscapes = false

func GetTerminalInfo(file *os.File) (info TerminalInfo) {
	fd := int(file.Fd())
	if term.IsTerminal(fd) {
		info.IsTTY = true
		if w, h, err := term.GetSize(fd); err == nil {
			info.Width = w
			info.Height = h
		}
	}
	return
}

// Escape sequences are not supported here, so strip them before writing
func writeStringWithColor(file *os.File, text string) {
	for {
		i := strings.IndexByte(text, '\033')
		if i < 0 {
			break
		}
		file.WriteString(text[:i])
		text = text[i:]
		end := strings.IndexByte(text, 'm')
		if end < 0 {
			break
		}
		text = text[end+1:]
	}
	file.WriteString(text)
}
