package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okTag       = color.New(color.FgGreen).Sprint("[OK]")
	infoTag     = color.New(color.FgBlue).Sprint("[INFO]")
	warnTag     = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	errorTag    = color.New(color.FgRed).Sprint("[ERROR]")
	dim         = color.New(color.Faint).SprintFunc()
	userColor   = color.New(color.FgCyan, color.Bold).SprintFunc()
	botColor    = color.New(color.FgGreen, color.Bold).SprintFunc()
)

// Print helper functions for consistent output formatting.
func printHeader(title string) {
	headerColor.Println("========================================")
	headerColor.Printf("       %s\n", title)
	headerColor.Println("========================================")
	fmt.Println()
}

func printSuccess(msg string) {
	fmt.Printf("%s %s\n", okTag, msg)
}

func printInfo(msg string) {
	fmt.Printf("%s %s\n", infoTag, msg)
}

func printWarn(msg string) {
	fmt.Printf("%s %s\n", warnTag, msg)
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorTag, msg)
}
