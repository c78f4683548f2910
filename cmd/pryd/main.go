// pryd - screen-reading chat companion
//
//	pryd run        Run the observation daemon
//	pryd status     Query a running daemon's health endpoint
//	pryd memory     Inspect the contact memory store
//	pryd config     Print the effective configuration
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		cmdRun()
	case "status":
		cmdStatus()
	case "memory":
		cmdMemory()
	case "config":
		cmdConfig()
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`pryd - screen-reading chat companion

USAGE:
    pryd <command> [options]

COMMANDS:
    run         Run the observation daemon
    status      Query a running daemon's health endpoint
    memory      Inspect the contact memory store
    config      Print the effective configuration
    help        Show this help message

The daemon watches a WeChat or QQ window, reads new messages off the
screen, and surfaces the companion's reactions as desktop
notifications. Nothing is injected into the chat application; pryd only
looks at pixels.

ENVIRONMENT:
    DOUBAO_API_KEY / DOUBAO_ENDPOINT_ID    Doubao credentials
    DEEPSEEK_API_KEY                       DeepSeek credentials
    PRYD_PLATFORM, PRYD_LOG_LEVEL, ...     Config overrides

Without an API key pryd still tracks conversations and logs new
messages, but takes no actions.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "pryd: "+format+"\n", args...)
	os.Exit(1)
}
