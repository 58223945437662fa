package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"library-catalog/internal/config"
	"library-catalog/internal/output"
	"library-catalog/library"
)

// Manifest lists the books to import. File paths are relative to the
// manifest's directory unless absolute.
type Manifest struct {
	Books []ManifestEntry `yaml:"books"`
}

type ManifestEntry struct {
	File   string `yaml:"file"`
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	ISBN   string `yaml:"isbn"`
	Year   int    `yaml:"year"`
}

type result struct {
	entry ManifestEntry
	id    int64
	err   error
}

var (
	cfgFile      string
	manifestPath string
	dryRun       bool
)

var rootCmd = &cobra.Command{
	Use:   "import_books",
	Short: "Bulk-add books to the catalog from a manifest",
	Long: `import_books creates catalog books from a YAML manifest and the text files
it names, using the administrator session stored by 'library-catalog login'.

Manifest format:
  books:
    - file: 1984.txt
      title: "1984"
      author: George Orwell
      year: 1949`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is .library.yaml)")
	rootCmd.Flags().StringVarP(&manifestPath, "manifest", "m", filepath.Join("texts", "books.yaml"), "manifest file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the manifest without creating books")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		output.NewPrinter(os.Stdout, os.Stderr, false).FormatError(err)
		os.Exit(output.ExitCodeOf(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return &output.CLIError{Summary: "Invalid configuration", Detail: err.Error(), ExitCode: output.ExitConfigError, Err: err}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	p := output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(),
		output.ResolveColors(output.ColorAuto, cfg.Output.Colors, cmd.OutOrStdout()))

	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return &output.CLIError{Summary: "Could not read manifest", Detail: err.Error(), ExitCode: output.ExitUsageError, Err: err}
	}
	p.Info("Importing %d book(s) from %s...", len(manifest.Books), manifestPath)

	manager, err := library.NewLibraryManager(library.Options{
		SessionPath: cfg.Session.Path,
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		Logger:      logger,
	})
	if err != nil {
		return &output.CLIError{Summary: "Could not open the session store", Detail: err.Error(), ExitCode: output.ExitConfigError, Err: err}
	}
	defer manager.Close()

	if !library.CanAccess(manager.Whoami(), library.RequireAdmin) {
		return &output.CLIError{
			Summary:    "Admin access required",
			Detail:     "importing books needs an administrator session",
			Suggestion: "run 'library-catalog login' with an admin account",
			ExitCode:   output.ExitAuthError,
		}
	}

	baseDir := filepath.Dir(manifestPath)
	var results []result
	for _, entry := range manifest.Books {
		res := result{entry: entry}
		p.Prompt(fmt.Sprintf("Importing: %s by %s... ", entry.Title, entry.Author))

		in, err := entry.bookInput(baseDir)
		if err == nil && dryRun {
			err = manager.Validator().Validate(in)
		} else if err == nil {
			var book *library.Book
			if book, err = manager.AddBook(cmd.Context(), nil, in); err == nil {
				res.id = book.ID
			}
		}
		res.err = err

		switch {
		case err != nil:
			p.Print("ERROR - %v", err)
		case dryRun:
			p.Print("OK")
		default:
			p.Print("SUCCESS (ID: %d)", res.id)
		}
		results = append(results, res)
	}

	return summarize(p, results)
}

// LoadManifest reads and checks a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(m.Books) == 0 {
		return nil, errors.New("manifest lists no books")
	}
	for i, b := range m.Books {
		if b.File == "" {
			return nil, fmt.Errorf("entry %d (%q): file is required", i+1, b.Title)
		}
	}
	return &m, nil
}

func (e ManifestEntry) bookInput(baseDir string) (library.BookInput, error) {
	path := e.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return library.BookInput{}, fmt.Errorf("file not accessible: %w", err)
	}
	return library.BookInput{
		Title:           e.Title,
		Author:          e.Author,
		ISBN:            e.ISBN,
		PublicationYear: e.Year,
		Content:         string(content),
		Available:       true,
	}, nil
}

func summarize(p *output.Printer, results []result) error {
	var failed int
	table := output.NewTable(p.Out(), []string{"ID", "Title", "Author", "Result"})
	for _, r := range results {
		id, status := "", "imported"
		if r.id != 0 {
			id = strconv.FormatInt(r.id, 10)
		}
		if r.err != nil {
			failed++
			status = "failed"
		} else if dryRun {
			status = "valid"
		}
		table.AddRow(id, output.Truncate(r.entry.Title, 50), output.Truncate(r.entry.Author, 30), status)
	}

	p.Header("Import complete")
	if err := table.Render(); err != nil {
		return err
	}
	p.Print("Successfully processed: %d book(s)", len(results)-failed)
	p.Print("Errors: %d", failed)

	if failed > 0 {
		return &output.CLIError{
			Summary:  fmt.Sprintf("%d of %d book(s) failed", failed, len(results)),
			ExitCode: output.ExitGeneral,
		}
	}
	return nil
}

