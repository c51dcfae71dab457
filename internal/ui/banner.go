package ui

import (
	"fmt"
	"io"
)

// PrintBanner prints the startup banner with session details.
func PrintBanner(out io.Writer, styles *Styles, version, model, workDir string, safeMode bool) {
	if styles == nil {
		styles = NewStyles()
	}
	fmt.Fprintln(out, styles.Banner.Render("gema "+version))
	fmt.Fprintln(out, styles.Muted.Render("model: "+model))
	fmt.Fprintln(out, styles.Muted.Render("dir:   "+workDir))
	mode := "safe mode on"
	if !safeMode {
		mode = "safe mode off"
	}
	fmt.Fprintln(out, styles.Muted.Render("mode:  "+mode))
	fmt.Fprintln(out, styles.Muted.Render("type /help for commands, /exit to quit"))
	fmt.Fprintln(out)
}
