// Package main is the studyhall command: the chat gateway server plus a
// small client for talking to it from a terminal.
package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags.
var Version = "v0.1.0"

func main() {
	loadEnvFiles()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "serve":
		runServeCommand(args)
	case "register", "login", "logout", "whoami",
		"sessions", "history", "send", "rename", "delete", "upload":
		os.Exit(runClientCommand(cmd, args))
	case "version", "-v", "--version":
		fmt.Printf("studyhall %s\n", Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		printError(fmt.Sprintf("unknown command %q", cmd))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Study Hall chat gateway")
	fmt.Println()
	fmt.Println("Usage: studyhall COMMAND [OPTIONS] [ARGS...]")
	fmt.Println()
	fmt.Println("Server:")
	fmt.Println("  serve [-c FILE] [-p PORT] [-d]   Run the gateway")
	fmt.Println()
	fmt.Println("Client:")
	fmt.Println("  register USERNAME                Create an account and sign in")
	fmt.Println("  login USERNAME                   Sign in")
	fmt.Println("  logout                           Sign out")
	fmt.Println("  whoami                           Show the signed-in user")
	fmt.Println("  sessions                         List chat sessions")
	fmt.Println("  history SESSION_ID               Show a session's messages")
	fmt.Println("  send [-s SESSION_ID] TEXT...     Send a message (new session if -s is omitted)")
	fmt.Println("  rename SESSION_ID TITLE...       Rename a session")
	fmt.Println("  delete SESSION_ID                Delete a session")
	fmt.Println("  upload [--simple] FILE           Upload a course document (admin)")
	fmt.Println()
	fmt.Println("Client options:")
	fmt.Println("  --gateway URL    Gateway URL (default $STUDYHALL_GATEWAY_URL or http://localhost:5000)")
	fmt.Println("  --state FILE     Client state database (default ~/.config/studyhall/client.db)")
}
