package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the Cairn ASCII art banner.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Indigo-to-rose gradient, one color per row
	s1 := termenv.String("               _              ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("   ___   __ _ (_) _ __  _ __  ").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String("  / __| / _` || || '__|| '_ \\ ").Foreground(p.Color("#c084fc"))
	s4 := termenv.String(" | (__ | (_| || || |   | | | |").Foreground(p.Color("#e879f9"))
	s5 := termenv.String("  \\___| \\__,_||_||_|   |_| |_|").Foreground(p.Color("#f472b6"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println()
}
