package main

import (
	"encoding/json"
	"fmt"
	"os"

	"flatshare/backend/internal/api/handler"
	"flatshare/backend/internal/config"
	"flatshare/backend/internal/conversation"
	"flatshare/backend/internal/storage"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func main() {
	app := &cli.App{
		Name:  "admin",
		Usage: "Operator tools for the flat-share messaging backend",
		Commands: []*cli.Command{
			migrateCommand(),
			inspectCommand(),
			reconcileUnreadCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// openDB connects to the database named by the environment.
func openDB() (*gorm.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

// openService builds a conversation service over PostgreSQL. No redis needed for admin CLI.
func openService() (*conversation.Service, error) {
	db, _, err := openDB()
	if err != nil {
		return nil, err
	}
	return conversation.NewService(storage.NewStorageService(db, nil)), nil
}

func conversationIDArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("usage: admin %s <conversation-id>", c.Command.Name)
	}
	return c.Args().First(), nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the conversations and messages tables",
		Action: func(c *cli.Context) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			if err := storage.Migrate(db); err != nil {
				return err
			}
			fmt.Println("Migrations complete.")
			return nil
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the stored conversation row and its message count",
		ArgsUsage: "<conversation-id>",
		Action: func(c *cli.Context) error {
			id, err := conversationIDArg(c)
			if err != nil {
				return err
			}
			svc, err := openService()
			if err != nil {
				return err
			}

			info, err := svc.Inspect(c.Context, id)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info.Conversation, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			fmt.Printf("messages: %d\n", info.MessageCount)
			return nil
		},
	}
}

func reconcileUnreadCommand() *cli.Command {
	return &cli.Command{
		Name:      "reconcile-unread",
		Usage:     "Recompute a conversation's unread set from its messages' read receipts",
		ArgsUsage: "<conversation-id>",
		Action: func(c *cli.Context) error {
			id, err := conversationIDArg(c)
			if err != nil {
				return err
			}
			svc, err := openService()
			if err != nil {
				return err
			}

			unread, err := svc.ReconcileUnread(c.Context, id)
			if err != nil {
				return err
			}
			fmt.Printf("Conversation %s unread for: %v\n", id, unread)
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "Issue a development bearer token for a user",
		ArgsUsage: "<user-id>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime",
				Value: config.DefaultTokenTTL,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: admin token <user-id>")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}

			token, err := handler.IssueToken([]byte(cfg.JWTSecret), c.Args().First(), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
