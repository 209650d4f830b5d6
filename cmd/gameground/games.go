package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jessevdk/go-flags"

	"github.com/mygameground/gameground"
)

type gamesOptions struct {
	File string `long:"file" short:"f" env:"GAMES_FILE" description:"YAML catalog to validate instead of the built-in one"`
}

// runGames validates a catalog and prints it as a table.
func runGames(args []string, w io.Writer) error {
	var opts gamesOptions
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "games [OPTIONS]"
	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	var (
		catalog *gameground.Catalog
		err     error
	)
	if opts.File != "" {
		catalog, err = gameground.LoadCatalogFile(opts.File)
	} else {
		catalog, err = gameground.DefaultCatalog()
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tTITLE")
	for _, g := range catalog.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", g.ID, g.Category, g.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d games, %d categories\n", catalog.Len(), len(catalog.Categories()))
	return nil
}
