package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/promptcraft/internal"
	pkgconfig "github.com/starford/promptcraft/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), "", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func assemble(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("assemble: exactly one prompt FILE is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Assemble(ctx, internal.AssembleOptions{
		File:      cmd.Args().First(),
		Attach:    cmd.StringSlice("attach"),
		Out:       cmd.String("out"),
		Clipboard: cmd.Bool("clipboard"),
		Items:     cmd.Bool("items"),
	}, internal.WithConfig(cfg))
}

func preview(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("preview: exactly one prompt FILE is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Preview(ctx, internal.PreviewOptions{
		File:   cmd.Args().First(),
		Attach: cmd.StringSlice("attach"),
		Width:  int(cmd.Int("width")),
		Style:  cmd.String("style"),
	}, internal.WithConfig(cfg))
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, cmd.String("base-dir"), internal.WithConfig(cfg))
}

func attachFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "attach",
		Aliases: []string{"a"},
		Usage:   "Attachment file path or URL (repeatable)",
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "promptcraft",
		Usage:  "Compose prompts that reference attachments by name and assemble them into plain text",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, scrape service and inbox watcher",
				Action: serve,
			},
			{
				Name:      "assemble",
				Usage:     "Resolve a prompt file and write it to stdout, a file or the clipboard",
				ArgsUsage: "FILE",
				Action:    assemble,
				Flags: []cli.Flag{
					attachFlag(),
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the prompt to this file"},
					&cli.BoolFlag{Name: "clipboard", Usage: "Copy the prompt to the clipboard"},
					&cli.BoolFlag{Name: "items", Usage: "Join FILE and attachments as separate items instead of parsing markup"},
				},
			},
			{
				Name:      "preview",
				Usage:     "Render an assembled prompt as Markdown in the terminal",
				ArgsUsage: "FILE",
				Action:    preview,
				Flags: []cli.Flag{
					attachFlag(),
					&cli.IntFlag{Name: "width", Value: 80, Usage: "Wrap width"},
					&cli.StringFlag{Name: "style", Usage: "glamour style name or JSON path (default: auto)"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve PromptCraft tools over MCP on stdio",
				Action: serveMCP,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "base-dir", Value: ".", Usage: "Directory for relative attachment paths"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
