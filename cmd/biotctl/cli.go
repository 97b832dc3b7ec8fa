package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/biotmed/biot-sdk-go/biot"
	"github.com/biotmed/biot-sdk-go/snapshot"
	"github.com/biotmed/biot-sdk-go/snapshot/reportstore"
)

type cli struct {
	rootCmd *cobra.Command

	baseURL  string
	username string
	password string
	token    string

	logger snapshot.Logger
	engine *snapshot.Engine
}

func newCLI() *cli {
	c := &cli{
		logger: slogLogger{logger: slog.New(slog.NewTextHandler(os.Stderr, nil))},
	}

	c.rootCmd = &cobra.Command{
		Use:           "biotctl",
		Short:         "biotctl manages Bio-T configuration snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := c.rootCmd.PersistentFlags()
	flags.StringVar(&c.baseURL, "url", os.Getenv("BIOT_BASE_URL"), "base URL of the Bio-T deployment")
	flags.StringVar(&c.username, "username", os.Getenv("BIOT_USERNAME"), "login username")
	flags.StringVar(&c.password, "password", os.Getenv("BIOT_PASSWORD"), "login password")
	flags.StringVar(&c.token, "token", os.Getenv("BIOT_TOKEN"), "ready auth token, skips login")

	c.rootCmd.AddCommand(
		c.exportCmd(),
		c.getReportCmd(),
		c.importCmd(),
		c.transferCmd(),
	)

	return c
}

func (c *cli) Execute() error {
	return c.rootCmd.Execute()
}

// dial builds the engine on first use: authenticates against the
// deployment, wires the entity store adapter, and opens the configured
// report store.
func (c *cli) dial(ctx context.Context) (*snapshot.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}

	if c.baseURL == "" {
		return nil, errors.New("no base URL configured, use --url or BIOT_BASE_URL")
	}

	clientOptions := []biot.ClientOption{}
	if c.token != "" {
		clientOptions = append(clientOptions, biot.WithToken(c.token))
	} else {
		clientOptions = append(clientOptions, biot.WithCredentials(c.username, c.password))
	}

	client, err := biot.NewClient(biot.NewAPIClient(c.baseURL, c.logger), clientOptions...)
	if err != nil {
		return nil, err
	}

	if c.token == "" {
		if _, err := client.Login(ctx); err != nil {
			return nil, fmt.Errorf("login failed: %w", err)
		}
	}

	manager, err := biot.NewDataManager(client, biot.WithDataManagerLogger(c.logger))
	if err != nil {
		return nil, err
	}

	entities, err := biot.NewEntityStore(manager)
	if err != nil {
		return nil, err
	}

	reports, err := reportstore.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening report store: %w", err)
	}

	engine, err := snapshot.NewEngine(entities, reports, snapshot.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}

	c.engine = &engine

	return c.engine, nil
}

func (c *cli) exportCmd() *cobra.Command {
	var name string
	var sinceRaw string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full configuration into the report store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := c.dial(cmd.Context())
			if err != nil {
				return err
			}

			reportID := ""
			if sinceRaw == "" {
				reportID, err = engine.ExportFullConfigurationSnapshot(cmd.Context(), name)
			} else {
				var since time.Time
				since, err = time.Parse(time.RFC3339, sinceRaw)
				if err != nil {
					return fmt.Errorf("invalid --since value: %w", err)
				}
				reportID, err = engine.ExportConfigurationSnapshotSince(cmd.Context(), name, since)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), reportID)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name to store the report under")
	cmd.Flags().StringVar(&sinceRaw, "since", "", "only include entities created at or after this RFC 3339 instant")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func (c *cli) getReportCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "get-report",
		Short: "Print a stored report as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := c.dial(cmd.Context())
			if err != nil {
				return err
			}

			report, err := engine.GetReportFileByName(cmd.Context(), name)
			if err != nil {
				return err
			}

			document, err := report.MarshalDocument()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(document))

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name of the stored report")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	var name string
	var targetOrg string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a stored report into an organization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := c.dial(cmd.Context())
			if err != nil {
				return err
			}

			report, err := engine.GetReportFileByName(cmd.Context(), name)
			if err != nil {
				return err
			}

			result, err := engine.ImportConfigurationSnapshot(cmd.Context(), report, targetOrg)
			printImportResult(cmd, result)

			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name of the stored report")
	cmd.Flags().StringVar(&targetOrg, "target-org", "", "organization to import into")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target-org")

	return cmd
}

func (c *cli) transferCmd() *cobra.Command {
	var name string
	var sourceOrg string
	var targetOrg string
	var roots []string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer a stored configuration between organizations",
		Long: "Transfer a stored configuration between organizations. With --root " +
			"flags, only the copy closure of the given root assets is carried over.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := c.dial(cmd.Context())
			if err != nil {
				return err
			}

			rootIDs, err := parseRoots(roots)
			if err != nil {
				return err
			}

			result, err := engine.TransferOrgConfiguration(cmd.Context(), sourceOrg, targetOrg, name, rootIDs)
			printImportResult(cmd, result)

			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name of the stored report")
	cmd.Flags().StringVar(&sourceOrg, "source-org", "", "organization the report was exported from")
	cmd.Flags().StringVar(&targetOrg, "target-org", "", "organization to transfer into")
	cmd.Flags().StringArrayVar(&roots, "root", nil, "root asset as template=id, repeatable")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("source-org")
	_ = cmd.MarkFlagRequired("target-org")

	return cmd
}

// parseRoots turns repeated template=id flags into the engine's root set.
// A nil result means no restriction.
func parseRoots(roots []string) (map[snapshot.TemplateName][]snapshot.EntityID, error) {
	if len(roots) == 0 {
		return nil, nil
	}

	rootIDs := make(map[snapshot.TemplateName][]snapshot.EntityID, len(roots))
	for _, root := range roots {
		templateName, id, found := strings.Cut(root, "=")
		if !found || templateName == "" || id == "" {
			return nil, fmt.Errorf("invalid --root value %q, expected template=id", root)
		}
		rootIDs[templateName] = append(rootIDs[templateName], id)
	}

	return rootIDs, nil
}

func printImportResult(cmd *cobra.Command, result snapshot.ImportResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "entities created: %d\n", result.Lookup.Len())
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning.Warning())
	}
}

// slogLogger adapts log/slog to the engine's logging contract.
type slogLogger struct {
	logger *slog.Logger
}

func (l slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
