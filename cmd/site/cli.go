package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
	"github.com/krisyotam/krisyotam.com-sub010/internal/mcp"
	"github.com/krisyotam/krisyotam.com-sub010/internal/ops"
	"github.com/krisyotam/krisyotam.com-sub010/internal/web"
)

// envOpener opens the environment for a home directory.
type envOpener func(home string) (*siteEnv, error)

// newCLIApp creates the CLI application with all commands. Output goes to w.
func newCLIApp(open envOpener, w io.Writer) *cli.App {
	run := func(fn func(c *cli.Context, env *siteEnv) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			env, err := open(c.String("home"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			defer env.Close()
			return fn(c, env)
		}
	}

	app := &cli.App{
		Name:    "site",
		Usage:   "Typed content repository for the site",
		Version: Version,
		Writer:  w,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "home", EnvVars: []string{HomeEnv}, Usage: "Home directory (default ~/.site)"},
		},
		Commands: []*cli.Command{
			serveCmd(run),
			mcpCmd(run),
			listCmd(run),
			getCmd(run),
			searchCmd(run),
			typesCmd(run),
			tagsCmd(run),
			categoriesCmd(run),
			sequenceCmd(run),
			feedCmd(run),
			exportCmd(run),
			importCmd(run),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

type runner func(fn func(c *cli.Context, env *siteEnv) error) cli.ActionFunc

var pagingFlags = []cli.Flag{
	&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Page size (default 20, max 100)"},
	&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
}

var filterFlags = []cli.Flag{
	&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Filter by category slug"},
	&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Filter by tag"},
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// serveCmd creates the serve command.
func serveCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP content API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (overrides config)"},
		},
		Action: run(func(c *cli.Context, env *siteEnv) error {
			if c.IsSet("bind") {
				env.cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				env.cfg.Port = c.Int("port")
			}
			srv := web.NewServer(env.repo, env.cfg, env.log, Version)
			return web.Run(srv, env.log)
		}),
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve content tools over MCP stdio",
		Action: run(func(c *cli.Context, env *siteEnv) error {
			return mcp.Run(env.repo, env.cfg, env.log, Version)
		}),
	}
}

// listCmd creates the list command.
func listCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List active items of a type, newest first",
		ArgsUsage: "<type|all>",
		Flags:     flags(filterFlags, pagingFlags),
		Action: run(func(c *cli.Context, env *siteEnv) error {
			if c.NArg() < 1 {
				return outputError(errors.NewValidation("type argument is required"))
			}
			output, err := env.repo.List(c.Context, ops.ListInput{
				Type:     c.Args().First(),
				Category: c.String("category"),
				Tag:      c.String("tag"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// getCmd creates the get command.
func getCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch one item with its rendered body",
		ArgsUsage: "<type> <slug>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "include-hidden", Usage: "Return hidden items too"},
		},
		Action: run(func(c *cli.Context, env *siteEnv) error {
			if c.NArg() < 2 {
				return outputError(errors.NewValidation("type and slug arguments are required"))
			}
			output, err := env.repo.Fetch(c.Context, ops.FetchInput{
				Type:          c.Args().Get(0),
				Slug:          c.Args().Get(1),
				IncludeHidden: c.Bool("include-hidden"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// searchCmd creates the search command.
func searchCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search active items",
		ArgsUsage: "<query>",
		Flags: flags([]cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Restrict to one type"},
		}, filterFlags, pagingFlags),
		Action: run(func(c *cli.Context, env *siteEnv) error {
			output, err := env.repo.Search(c.Context, ops.SearchInput{
				Query:    c.Args().First(),
				Type:     c.String("type"),
				Category: c.String("category"),
				Tag:      c.String("tag"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// typesCmd creates the types command.
func typesCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:  "types",
		Usage: "Summarize enabled content types",
		Action: run(func(c *cli.Context, env *siteEnv) error {
			output, err := env.repo.Inventory(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// tagsCmd creates the tags command.
func tagsCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List tags with counts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Restrict to one type"},
		},
		Action: run(func(c *cli.Context, env *siteEnv) error {
			var (
				tags []content.Tag
				err  error
			)
			if name := c.String("type"); name != "" && name != content.AllRoute {
				var t content.Type
				if t, err = env.repo.ResolveType(name); err == nil {
					tags, err = env.repo.TagsByType(c.Context, t)
				}
			} else {
				tags, err = env.repo.AllTags(c.Context)
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, tags)
		}),
	}
}

// categoriesCmd creates the categories command.
func categoriesCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "List categories with counts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Restrict to one type"},
		},
		Action: run(func(c *cli.Context, env *siteEnv) error {
			var (
				categories []content.Category
				err        error
			)
			if name := c.String("type"); name != "" && name != content.AllRoute {
				var t content.Type
				if t, err = env.repo.ResolveType(name); err == nil {
					categories, err = env.repo.CategoriesByType(c.Context, t)
				}
			} else {
				categories, err = env.repo.AllCategories(c.Context)
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, categories)
		}),
	}
}

// sequenceCmd creates the sequence command.
func sequenceCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:      "sequence",
		Usage:     "List sequences, or show one with its posts resolved",
		ArgsUsage: "[slug]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "include-hidden", Usage: "Return a hidden sequence too"},
		},
		Action: run(func(c *cli.Context, env *siteEnv) error {
			if c.NArg() == 0 {
				output, err := env.repo.Sequences(c.Context)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, output)
			}
			output, err := env.repo.SequenceBySlug(c.Context, c.Args().First(), c.Bool("include-hidden"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// feedCmd creates the feed command.
func feedCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Write the RSS feed to stdout",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Restrict to one type"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Number of items (default: feed_limit)"},
		},
		Action: run(func(c *cli.Context, env *siteEnv) error {
			data, err := env.repo.Feed(c.Context, ops.FeedInput{
				Type:  c.String("type"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			_, err = c.App.Writer.Write(data)
			return err
		}),
	}
}

// exportCmd creates the export command.
func exportCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export records to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: <home>/exports/<type|all>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "type", Usage: "Export only items of this type"},
		},
		Action: run(func(c *cli.Context, env *siteEnv) error {
			output, err := ops.Export(c.Context, env.store, env.cfg, env.ExportsDir(), ops.ExportInput{
				Path: c.String("path"),
				Type: c.String("type"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// importCmd creates the import command.
func importCmd(run runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import records from a JSONL file into the SQLite store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
		},
		Action: run(func(c *cli.Context, env *siteEnv) error {
			if env.db == nil {
				return outputError(errors.NewValidation(fmt.Sprintf("import requires the sqlite backend, configured backend is %q", env.cfg.Backend)))
			}
			output, err := ops.Import(c.Context, env.db, env.cfg, env.ExportsDir(), ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// Helper functions

// outputJSON writes v as indented JSON to the app's writer.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var cErr *errors.ContentError
	if errors.As(err, &cErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
