package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/ontosearch/pkg/core"
	"github.com/urfave/cli/v3"
)

// RulesCommand creates the rules command
func RulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "List and check validation rules",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "rules",
				Usage: "Rules file overriding the configured one",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			path := c.String("rules")
			if path == "" {
				path = cfg.RulesFile
			}
			if path == "" {
				return fmt.Errorf("no rules file configured: set rules_file in the config or pass --rules")
			}

			rules, err := core.LoadRules(path)
			if err != nil {
				return err
			}

			fmt.Print(formatRules(rules))
			return checkRules(rules)
		},
	}
}

// checkRules normalizes every rule so broken patterns are reported up front.
func checkRules(rules core.Rules) error {
	var failed int
	for _, r := range rules {
		if _, err := r.Normalize(); err != nil {
			fmt.Println(errorStyle.Render("✗ " + err.Error()))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d invalid rules", failed)
	}
	return nil
}
