// Package ui prints colored progress for plantscan commands.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	blue   = color.New(color.FgBlue)
	red    = color.New(color.FgRed)
)

// Header prints a formatted header
func Header(text string) {
	line := strings.Repeat("=", 60)
	green.Printf("\n%s\n", line)
	green.Printf("%-60s\n", center(text, 60))
	green.Printf("%s\n\n", line)
}

// Step prints a step indicator
func Step(stepNum, totalSteps int, text string) {
	yellow.Printf("[%d/%d] %s\n", stepNum, totalSteps, text)
}

// Success prints a success message
func Success(text string) {
	green.Printf("  → %s\n", text)
}

// Info prints an info message
func Info(text string) {
	fmt.Fprintf(color.Output, "  → %s\n", text)
}

// Warning prints a warning message
func Warning(text string) {
	yellow.Printf("  ⚠ %s\n", text)
}

// Error prints an error message
func Error(text string) {
	red.Printf("Error: %s\n", text)
}

// BlueText prints blue text
func BlueText(text string) {
	blue.Println(text)
}

// ItemStarted prints the image an upload worker just picked up.
func ItemStarted(index, total int, path string) {
	blue.Printf("  [%s] %s\n", counter(index, total), path)
}

// ItemSucceeded prints a finished upload with its registered id.
func ItemSucceeded(index, total int, path, id string) {
	green.Printf("  [%s] ✓ %s → %s\n", counter(index, total), path, id)
}

// ItemFailed prints a failed image and the reason.
func ItemFailed(index, total int, path string, err error) {
	red.Printf("  [%s] ✗ %s: %v\n", counter(index, total), path, err)
}

// counter formats a 0-based index as a right-aligned "n/total".
func counter(index, total int) string {
	width := len(fmt.Sprint(total))
	return fmt.Sprintf("%*d/%d", width, index+1, total)
}

// center centers text within a given width
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}
