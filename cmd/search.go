package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rubiojr/ontosearch/pkg/core"
	"github.com/rubiojr/ontosearch/pkg/search"
	"github.com/urfave/cli/v3"
)

var jsonFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "Print the raw search result as JSON",
}

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search ontology terms for a field value",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "keyword",
				Aliases:  []string{"k"},
				Usage:    "Free text, IRI or CURIE to look up",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "field",
				Aliases:  []string{"f"},
				Usage:    "Field whose validation rule constrains the search",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "rule-name",
				Usage: "Rule to use when the field has several",
			},
			&cli.StringFlag{
				Name:  "rules",
				Usage: "Rules file overriding the configured one",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Zero-based result page",
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "Rows requested per backend query (0 uses the configured default)",
			},
			&cli.BoolFlag{
				Name:  "exact",
				Usage: "Only run the exact-match query",
			},
			jsonFlag,
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Int("page") < 0 || c.Int("size") < 0 {
				return fmt.Errorf("page and size must not be negative")
			}
			return withEngine(ctx, c, func(e *engine) error {
				rule, err := e.ruleFor(c.String("rules"), c.String("field"), c.String("rule-name"))
				if err != nil {
					return err
				}
				opts := search.SearchOptions{
					Page:       int(c.Int("page")),
					Size:       int(c.Int("size")),
					ExactMatch: c.Bool("exact"),
				}
				result := e.service.Search(ctx, c.String("keyword"), rule, opts)
				return printResult(c, c.String("keyword"), result)
			})
		},
	}
}

// FindCommand creates the find command
func FindCommand() *cli.Command {
	return &cli.Command{
		Name:  "find",
		Usage: "Find a term by exact label",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "term",
				Aliases:  []string{"t"},
				Usage:    "Term label",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "ontology",
				Aliases: []string{"o"},
				Usage:   "Restrict to these ontologies (repeatable or comma separated)",
			},
			jsonFlag,
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withEngine(ctx, c, func(e *engine) error {
				var ontologies []string
				for _, o := range c.StringSlice("ontology") {
					ontologies = append(ontologies, core.ParseOntologies(o)...)
				}
				result := e.service.FindOntologyTerm(ctx, c.String("term"), ontologies)
				return printResult(c, c.String("term"), result)
			})
		},
	}
}

// AccessionCommand creates the accession command
func AccessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "accession",
		Usage: "Look up a term by accession",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "accession",
				Aliases:  []string{"a"},
				Usage:    "Term accession or IRI",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "ontology",
				Aliases:  []string{"o"},
				Usage:    "Ontology holding the term",
				Required: true,
			},
			jsonFlag,
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withEngine(ctx, c, func(e *engine) error {
				accession := c.String("accession")
				result := e.service.FindByAccession(ctx, accession, c.String("ontology"))
				return printResult(c, accession, result)
			})
		},
	}
}

func printResult(c *cli.Command, query string, result core.SearchResult) error {
	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Print(formatResult(query, result))
	if !result.Success {
		return fmt.Errorf("search failed: %s", result.Message)
	}
	return nil
}
