package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"chartfetch/pkg/auth"
	"chartfetch/pkg/bundle"
	"chartfetch/pkg/config"
	"chartfetch/pkg/logger"
	"chartfetch/pkg/scanner"
	"chartfetch/pkg/ui"
)

var (
	// Scan command flags
	outputDir   string
	extractor   string
	maxFileSize int64
	maxInFlight int
	accountName string
	rootSpecs   []string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan configured roots and download new bundles",
	Long: `Scan every configured root folder, discover chart bundles, and download
bundles not yet present on disk.

Roots come from the config file or from repeated --root flags. A root is
specified as "id=owner" where id is the remote folder (or file) id and owner
labels its destination subdirectory. Append ",file" for roots that point at
a single file rather than a folder.

Credentials are resolved from:
  - Stored credentials (use 'chartfetch auth login' to store)
  - Environment variable (CHARTFETCH_ACCESS_TOKEN)`,
	Example: `  # Scan roots from the config file
  chartfetch scan

  # Scan one root ad hoc
  chartfetch scan --root 1AbCdEf=SomeCharter

  # Scan a shared archive file
  chartfetch scan --root 9ZyXwV=SomeCharter,file --output ./charts`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for downloaded bundles")
	scanCmd.Flags().StringVar(&extractor, "extractor", "", "external archive extraction executable")
	scanCmd.Flags().Int64Var(&maxFileSize, "max-file-size", 0, "skip files larger than this many bytes (0 = no limit)")
	scanCmd.Flags().IntVar(&maxInFlight, "max-in-flight", 0, "maximum concurrent API calls")
	scanCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	scanCmd.Flags().StringArrayVar(&rootSpecs, "root", nil, "root to scan, as id=owner[,file] (repeatable)")
}

func runScan(cmd *cobra.Command, args []string) error {
	roots, err := parseRootSpecs(rootSpecs)
	if err != nil {
		return err
	}

	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if extractor != "" {
		flags["extractor"] = extractor
	}
	if maxFileSize > 0 {
		flags["max-file-size"] = maxFileSize
	}
	if maxInFlight > 0 {
		flags["max-in-flight"] = maxInFlight
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if len(roots) > 0 {
		flags["roots"] = roots
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	if len(cfg.Roots) == 0 {
		ui.PrintError("No roots configured", "add roots to the config file or pass --root")
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}

	token, err := resolveToken()
	if err != nil {
		ui.PrintError("No credentials found", "run 'chartfetch auth login' or set CHARTFETCH_ACCESS_TOKEN")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scanner.New(cfg, token, ui.NewTerminalPrompter(), logger.GetLogger())
	if err := s.Run(ctx); err != nil {
		if errors.Is(err, scanner.ErrAborted) {
			ui.PrintWarning("Scan aborted")
			os.Exit(1)
		}
		logger.WithError(err).Error("scan failed")
		ui.PrintError("Scan failed", err.Error())
		os.Exit(1)
	}
	return nil
}

// resolveToken fetches the access token for the selected or default account.
func resolveToken() (string, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return "", err
	}

	var account *auth.Account
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		return "", err
	}
	return account.AccessToken, nil
}

// parseRootSpecs converts --root flag values into roots.
func parseRootSpecs(specs []string) ([]bundle.Root, error) {
	var roots []bundle.Root
	for _, spec := range specs {
		id, rest, found := strings.Cut(spec, "=")
		if !found || id == "" {
			return nil, errors.New("invalid --root value " + spec + ": expected id=owner[,file]")
		}

		owner, modifier, _ := strings.Cut(rest, ",")
		if owner == "" {
			return nil, errors.New("invalid --root value " + spec + ": owner label is required")
		}

		root := bundle.Root{ID: id, Owner: owner}
		switch modifier {
		case "":
		case "file":
			root.IsFile = true
		default:
			return nil, errors.New("invalid --root modifier " + modifier + ": only 'file' is supported")
		}
		roots = append(roots, root)
	}
	return roots, nil
}
