package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dropmirror/internal/app"
	"dropmirror/internal/config"
	"dropmirror/internal/encryption"
	"dropmirror/internal/mirror"
	"dropmirror/internal/progress"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, after loading a .env file from the data
// directory and the working directory, and applies credential overrides
// from the environment.
func loadConfig() (*config.Config, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	for _, p := range []string{".env", defaults["env_path"]} {
		if err := config.LoadDotEnv(p); err != nil {
			return nil, nil, err
		}
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, defaults, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewApp(cmd.Context(), cfg, app.Options{
		Progress: progress.NewBar(os.Stdout),
		Verbose:  verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// stdin is shared so that consecutive prompts do not lose buffered input.
var stdin = bufio.NewReader(os.Stdin)

// readPassphrase reads a passphrase without echo when stdin is a terminal,
// or a single line otherwise.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "dropmirror",
	Short:        "Mirror Dropmark collections to local disk",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init ACCOUNT",
	Short: "Initialize configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(args[0], defaults["base_dir"])
		cfg.OutputDir = defaults["output_dir"]
		cfg.Username, _ = cmd.Flags().GetString("username")

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Account:    %s\n", cfg.AccountURL())
		fmt.Printf("Output Dir: %s\n", cfg.OutputDir)
		fmt.Printf("Set the password in the config file or %s.\n", config.EnvPassword)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		password := "(not set)"
		if cfg.Password != "" {
			password = "(set)"
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Account:    %s\n", cfg.AccountURL())
		fmt.Printf("Username:   %s\n", cfg.Username)
		fmt.Printf("Password:   %s\n", password)
		fmt.Printf("Output Dir: %s\n", cfg.OutputDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("History:    %s\n", cfg.History.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		if cfg.Metrics.Textfile != "" {
			fmt.Printf("Metrics:    %s\n", cfg.Metrics.Textfile)
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the archive encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		pass, err := readPassphrase("New passphrase: ")
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}

		enc := encryption.NewAgeEncryptor(afero.NewOsFs(), cfg.Encryption)
		if err := enc.Setup(pass); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		pub, err := enc.PublicKey()
		if err != nil {
			return err
		}

		fmt.Printf("Public key: %s\n", pub)
		if cfg.Encryption.Type != "age" {
			fmt.Println(`Set encryption.type = "age" in the config to encrypt archives.`)
		}
		return nil
	},
}

// collections command
var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections found in the activity feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		collections := a.Collections(cmd.Context())
		if len(collections) == 0 {
			fmt.Println("No collections found in activity feed.")
			return nil
		}
		for _, c := range collections {
			fmt.Printf("%-10s  %s\n", c.ID, c.Name)
		}
		return nil
	},
}

// download command
var downloadCmd = &cobra.Command{
	Use:   "download [ID|URL...]",
	Short: "Download collections",
	Long: `Download collections into a new "Dropmark Download <date - time>" directory.

With no arguments, a menu of discovered collections is shown. With --all,
every discovered collection is downloaded. Arguments are collection ids or
URLs, resolved one by one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all && len(args) > 0 {
			return errors.New("--all cannot be combined with collection ids")
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		mode, collections, err := chooseCollections(ctx, a, all, args)
		if err != nil {
			return err
		}
		if len(collections) == 0 {
			return errors.New("nothing to download")
		}

		run, err := a.Download(ctx, mode, collections)
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}

		fmt.Printf("\nDownloaded to: %s\n", run.RootDir)
		fmt.Printf("%d collection(s), %d aborted; %d written, %d skipped, %d failed\n",
			run.Collections, run.Aborted, run.Written, run.Skipped, run.Failed)
		return nil
	},
}

func chooseCollections(ctx context.Context, a *app.App, all bool, args []string) (string, []mirror.Collection, error) {
	if len(args) > 0 {
		collections, errs := a.ResolveManual(ctx, args)
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "Invalid collection ID or unauthorized: %v\n", err)
		}
		return app.ModeManual, collections, nil
	}

	fmt.Println("Fetching activity feed to discover collections...")
	discovered := a.Collections(ctx)
	if all {
		return app.ModeAll, discovered, nil
	}

	sel, err := app.PromptSelection(app.TerminalPrompter{}, os.Stdout, discovered)
	if err != nil {
		return "", nil, err
	}
	switch {
	case sel.All:
		return app.ModeAll, discovered, nil
	case sel.Manual != "":
		collections, errs := a.ResolveManual(ctx, []string{sel.Manual})
		if len(errs) > 0 {
			return "", nil, fmt.Errorf("invalid collection ID or unauthorized: %w", errs[0])
		}
		return app.ModeManual, collections, nil
	default:
		return app.ModeSelected, []mirror.Collection{*sel.Collection}, nil
	}
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history [RUN_ID]",
	Short: "View past download runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			return printRunCollections(a, args[0])
		}

		runs, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt != nil {
				duration = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-8s  %s  %-8s  %3d coll  %4d written  %4d failed  %s\n",
				r.ID,
				r.Mode,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Status,
				r.Collections,
				r.Written,
				r.Failed,
				duration,
			)
		}
		return nil
	},
}

func printRunCollections(a *app.App, runID string) error {
	rcs, err := a.RunCollections(runID)
	if err != nil {
		return err
	}
	if len(rcs) == 0 {
		fmt.Printf("No collections recorded for run %s.\n", runID)
		return nil
	}
	for _, rc := range rcs {
		fmt.Printf("%-10s  %-8s  %s\n", rc.CollectionID, rc.Status, rc.Name)
		if rc.Error != "" {
			fmt.Printf("            %s\n", rc.Error)
		}
		for _, it := range rc.Items {
			if it.Outcome == "failed" {
				fmt.Printf("            item %s failed: %s\n", it.ItemID, it.Error)
			}
		}
	}
	return nil
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Work with archived copies",
}

var archiveGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Fetch an archived file, decrypting it if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}

		passphrase := func() (string, error) { return readPassphrase("Passphrase: ") }
		if err := a.FetchArchived(cmd.Context(), vaultName, args[0], passphrase, w); err != nil {
			if output != "" {
				os.Remove(output)
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show progress log lines on stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringP("username", "u", "", "Account login (usually an email address)")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// archive subcommands
	archiveCmd.AddCommand(archiveGetCmd)
	archiveGetCmd.Flags().String("vault", "", "Vault name (default: first configured vault)")
	archiveGetCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().Bool("all", false, "Download every discovered collection")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	rootCmd.AddCommand(archiveCmd)
}
