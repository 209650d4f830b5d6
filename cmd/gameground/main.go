package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "games":
		err = runGames(os.Args[2:], os.Stdout)
	case "version":
		fmt.Printf("gameground %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gameground - an online games portal with a Blogger-backed news section

Usage:
  gameground <command> [options]

Commands:
  serve         Start the web server (see "gameground serve --help")
  games         List and validate the game catalog
  version       Print the gameground version
  help          Show this help message

Settings are read from flags, the environment, .env.local and .env, in that order.

Examples:
  gameground serve --site-url https://mygameground.com --blog-id 123
  gameground games --file ./games.yaml`)
}
