package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mediavault/internal/app"
	"mediavault/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "mv",
	Short:        "Media vault: folders, files and versions",
	SilenceUsage: true,
}

// loadConfig reads the config file named by the defaults.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an MVApp. The caller must defer a.Close().
// When asUser is set the acting user is resolved from --as or MV_USER and
// authenticated before returning.
func newApp(cmd *cobra.Command, operation string, asUser bool) (*app.MVApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewMVApp(cmd.Context(), cfg, app.Options{Operation: operation, Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	if asUser {
		if err := login(cmd, a); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func login(cmd *cobra.Command, a *app.MVApp) error {
	name, _ := cmd.Flags().GetString("as")
	if name == "" {
		name = os.Getenv(app.EnvUser)
	}
	if name == "" {
		return fmt.Errorf("this command needs a user: pass --as NAME or set %s", app.EnvUser)
	}

	password := os.Getenv(app.EnvPassword)
	if password == "" {
		var err error
		password, err = readPassword(fmt.Sprintf("Password for %s: ", name))
		if err != nil {
			return err
		}
	}

	_, err := a.Authenticate(cmd.Context(), name, password)
	return err
}

// readPassword prompts on stderr and reads a line from the terminal without echo.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password required: stdin is not a terminal (set " + app.EnvPassword + ")")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// readNewPassword asks twice and requires both entries to match.
func readNewPassword() (string, error) {
	if p := os.Getenv(app.EnvPassword); p != "" {
		return p, nil
	}
	first, err := readPassword("New password: ")
	if err != nil {
		return "", err
	}
	second, err := readPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, s)
	}
	return id, nil
}

// optionalFolder returns the --folder flag as a folder ID, or nil (root level)
// when the flag was not given.
func optionalFolder(cmd *cobra.Command, flag string) (*int64, error) {
	if !cmd.Flags().Changed(flag) {
		return nil, nil
	}
	raw, _ := cmd.Flags().GetString(flag)
	id, err := parseID(raw, "folder")
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		fmt.Println("Next: mv catalog migrate && mv user add NAME")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:       %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Catalog:        %s %s\n", cfg.Catalog.Type, cfg.Catalog.DataDir)
		fmt.Printf("Blob Store:     %s\n", describeBlobStore(cfg.BlobStore))
		fmt.Printf("Max Upload:     %d bytes\n", cfg.Ingest.MaxSize)
		fmt.Printf("Allowed Types:  %s\n", strings.Join(cfg.Ingest.AllowedTypes, ", "))
		fmt.Printf("Delete Policy:  %s\n", cfg.Library.FolderDeletePolicy)
		fmt.Printf("Tracing:        %v %s\n", cfg.Tracing.Enabled, cfg.Tracing.Endpoint)
		return nil
	},
}

func describeBlobStore(cfg config.BlobStoreConfig) string {
	switch cfg.Type {
	case "filesystem":
		return "filesystem " + cfg.Root
	case "s3":
		return fmt.Sprintf("s3 bucket=%s prefix=%s", cfg.S3Bucket, cfg.S3Prefix)
	case "minio":
		return fmt.Sprintf("minio %s bucket=%s prefix=%s", cfg.MinioEndpoint, cfg.MinioBucket, cfg.MinioPrefix)
	default:
		return cfg.Type
	}
}

func init() {
	rootCmd.PersistentFlags().String("as", "", "Act as this user (default $"+app.EnvUser+")")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
