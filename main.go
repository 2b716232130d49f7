package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/customeros/waitlist/config"
	"github.com/customeros/waitlist/internal/database"
	"github.com/customeros/waitlist/internal/intake"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/repository"
	"github.com/customeros/waitlist/internal/utils"
	"github.com/customeros/waitlist/server"
	"github.com/customeros/waitlist/services"
	"github.com/customeros/waitlist/services/waitlist"
)

func main() {
	app := &cli.App{
		Name:  "waitlist",
		Usage: "Waitlist intake service",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: migrate,
			},
			{
				Name:   "server",
				Usage:  "Start the application server",
				Action: runServer,
			},
			{
				Name:      "check",
				Usage:     "Validate email addresses without touching the database",
				ArgsUsage: "<email>...",
				Action:    check,
			},
			{
				Name:  "registry",
				Usage: "Manage the scam registry",
				Subcommands: []*cli.Command{
					{
						Name:      "upload",
						Usage:     "Validate a registry file and upload it to object storage",
						ArgsUsage: "<file>",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "key",
								Usage: "object key, defaults to SCAM_REGISTRY_OBJECT_KEY",
							},
						},
						Action: uploadRegistry,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrate(_ *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}

	waitlistDB, err := database.InitWaitlistDatabase(cfg.DatabaseConfig)
	if err != nil {
		return fmt.Errorf("waitlist database initialization failed: %w", err)
	}

	if err := repository.MigrateDB(cfg.DatabaseConfig, waitlistDB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("Database migration completed successfully")
	return nil
}

func runServer(c *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}

	waitlistDB, err := database.InitWaitlistDatabase(cfg.DatabaseConfig)
	if err != nil {
		return fmt.Errorf("waitlist database initialization failed: %w", err)
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Waitlist starting up...")

	srv, err := server.NewServer(c.Context, cfg, waitlistDB)
	if err != nil {
		return fmt.Errorf("server setup failed: %w", err)
	}

	if err := srv.Run(); err != nil {
		return fmt.Errorf("server startup failed: %w", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func check(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: waitlist check <email>...", 2)
	}

	cfg, err := config.InitIntakeConfig()
	if err != nil {
		return err
	}
	appLogger := cliLogger(cfg.Logger)

	ctx := utils.WithCustomContext(c.Context, &utils.CustomContext{AppSource: utils.AppSourceCli})
	validator, err := services.InitValidator(ctx, cfg, services.InitStorage(cfg.R2StorageConfig), appLogger)
	if err != nil {
		return err
	}

	if rejected := printVerdicts(ctx, c.App.Writer, validator, normalizedArgs(c.Args().Slice())); rejected > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// normalizedArgs normalizes each address so that spellings of the same address are checked once.
func normalizedArgs(args []string) []string {
	emails := make([]string, 0, len(args))
	for _, arg := range args {
		emails = append(emails, intake.Normalize(arg))
	}
	return utils.UniqueEmails(emails)
}

// printVerdicts writes one line per address and returns how many were rejected.
func printVerdicts(ctx context.Context, w io.Writer, validator *intake.Validator, emails []string) int {
	rejected := 0
	for _, email := range emails {
		result := validator.Validate(ctx, email)
		if result.Accepted {
			fmt.Fprintf(w, "%s\taccepted\n", result.Email)
			continue
		}

		rejected++
		line := fmt.Sprintf("%s\trejected\t%s", result.Email, result.Reason)
		if result.MatchedRule != "" {
			line += "\t" + result.MatchedRule
		}
		if result.Lookup != "" && result.Reason == intake.ReasonInvalidDomain {
			line += "\tmx=" + result.Lookup.String()
		}
		fmt.Fprintln(w, line)
	}
	return rejected
}

func uploadRegistry(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: waitlist registry upload [--key <key>] <file>", 2)
	}

	cfg, err := config.InitIntakeConfig()
	if err != nil {
		return err
	}

	storageService := services.InitStorage(cfg.R2StorageConfig)
	if storageService == nil {
		return cli.Exit("object storage is not configured", 1)
	}

	key := c.String("key")
	if key == "" {
		key = cfg.IntakeConfig.ScamRegistryObjectKey
	}
	if key == "" {
		return cli.Exit("no object key given and SCAM_REGISTRY_OBJECT_KEY is not set", 2)
	}

	content, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}

	ctx := utils.WithCustomContext(c.Context, &utils.CustomContext{AppSource: utils.AppSourceCli})
	registry, err := waitlist.PublishScamRegistry(ctx, storageService, key, content)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Uploaded %s to %s (%s)\n", c.Args().First(), key, registry)
	return nil
}

func cliLogger(cfg *logger.Config) logger.Logger {
	appLogger := logger.NewAppLogger(cfg)
	appLogger.InitLogger()
	return appLogger
}
