package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"library-catalog/internal/output"
	"library-catalog/library"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List the catalog",
	Long: `List books in the catalog.

Use --query to filter by title (case-insensitive) and --available to show only
books that can be borrowed right now.`,
	Args: cobra.NoArgs,
	RunE: runListBooks,
}

var bookShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lm, err := libraryManager()
		if err != nil {
			return err
		}
		match, err := navigate(lm, "/books/"+args[0])
		if err != nil {
			return err
		}
		id, err := parseID(match.Params["id"])
		if err != nil {
			return err
		}
		book, err := lm.GetBook(cmd.Context(), id)
		if err != nil {
			return cliError("load the book", err)
		}
		renderBook(*book, lm.Whoami())
		return nil
	},
}

var bookAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a book to the catalog (admin)",
	Args:  cobra.NoArgs,
	RunE:  runAddBook,
}

var bookEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a book (admin)",
	Long: `Edit a book's details.

Only the fields given as flags change. Without any flags every field is
prompted for, showing the current value as the default.`,
	Args: cobra.ExactArgs(1),
	RunE: runEditBook,
}

var bookDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a book (admin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteBook,
}

func init() {
	rootCmd.AddCommand(booksCmd)
	booksCmd.AddCommand(bookShowCmd, bookAddCmd, bookEditCmd, bookDeleteCmd)

	booksCmd.Flags().StringP("query", "q", "", "filter by title")
	booksCmd.Flags().Bool("available", false, "only books that can be borrowed")

	for _, c := range []*cobra.Command{bookAddCmd, bookEditCmd} {
		c.Flags().String("title", "", "book title")
		c.Flags().String("author", "", "book author")
		c.Flags().String("isbn", "", "ISBN")
		c.Flags().Int("year", 0, "publication year")
		c.Flags().String("content-file", "", "path to a text file with the book's content")
	}
	bookEditCmd.Flags().Bool("available", true, "whether the book can be borrowed")
	bookDeleteCmd.Flags().BoolP("yes", "y", false, "skip confirmation")
}

func runListBooks(cmd *cobra.Command, args []string) error {
	lm, err := libraryManager()
	if err != nil {
		return err
	}
	if _, err := navigate(lm, "/books"); err != nil {
		return err
	}

	query, _ := cmd.Flags().GetString("query")
	onlyAvailable, _ := cmd.Flags().GetBool("available")

	catalog, err := lm.LoadCatalog(cmd.Context())
	if err != nil {
		return cliError("load books", err)
	}
	return renderBooks(catalog.Filter(library.BookFilter{Query: query, OnlyAvailable: onlyAvailable}), query)
}

func runAddBook(cmd *cobra.Command, args []string) error {
	lm, err := libraryManager()
	if err != nil {
		return err
	}
	if _, err := navigate(lm, "/books/add"); err != nil {
		return err
	}

	in := library.BookInput{Available: true}
	if err := applyBookFlags(cmd, &in); err != nil {
		return err
	}
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	if in.Title == "" {
		in.Title, _ = p.ask("Title: ")
	}
	if in.Author == "" {
		in.Author, _ = p.ask("Author: ")
	}

	book, err := lm.AddBook(cmd.Context(), nil, in)
	if err != nil {
		return cliError("add the book", err)
	}
	printer.Success("Added book ID %d: %s", book.ID, book.Title)
	return nil
}

func runEditBook(cmd *cobra.Command, args []string) error {
	lm, err := libraryManager()
	if err != nil {
		return err
	}
	match, err := navigate(lm, "/books/"+args[0]+"/edit")
	if err != nil {
		return err
	}
	id, err := parseID(match.Params["id"])
	if err != nil {
		return err
	}

	current, err := lm.GetBook(cmd.Context(), id)
	if err != nil {
		return cliError("load the book", err)
	}
	in := bookInputFrom(*current)

	if !anyChanged(cmd, "title", "author", "isbn", "year", "available", "content-file") {
		if err := promptBook(newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), &in); err != nil {
			return err
		}
	} else if err := applyBookFlags(cmd, &in); err != nil {
		return err
	}

	book, err := lm.EditBook(cmd.Context(), nil, id, in)
	if err != nil {
		return cliError("update the book", err)
	}
	printer.Success("Updated book ID %d: %s", book.ID, book.Title)
	return nil
}

func runDeleteBook(cmd *cobra.Command, args []string) error {
	lm, err := libraryManager()
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	// Deleting shares the edit page's access rule.
	if _, err := navigate(lm, fmt.Sprintf("/books/%d/edit", id)); err != nil {
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).confirm(fmt.Sprintf("Delete book %d?", id)) {
		printer.Info("Cancelled")
		return nil
	}
	if err := lm.DeleteBook(cmd.Context(), nil, id); err != nil {
		return cliError("delete the book", err)
	}
	printer.Success("Deleted book %d", id)
	return nil
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// applyBookFlags copies the flags the user set onto in.
func applyBookFlags(cmd *cobra.Command, in *library.BookInput) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		in.Title, _ = flags.GetString("title")
	}
	if flags.Changed("author") {
		in.Author, _ = flags.GetString("author")
	}
	if flags.Changed("isbn") {
		in.ISBN, _ = flags.GetString("isbn")
	}
	if flags.Changed("year") {
		in.PublicationYear, _ = flags.GetInt("year")
	}
	if flags.Lookup("available") != nil && flags.Changed("available") {
		in.Available, _ = flags.GetBool("available")
	}
	if path, _ := flags.GetString("content-file"); path != "" {
		content, err := readContentFile(path)
		if err != nil {
			return err
		}
		in.Content = content
	}
	return nil
}

func readContentFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", &output.CLIError{
			Summary:  "Could not read content file",
			Detail:   err.Error(),
			ExitCode: output.ExitUsageError,
			Err:      err,
		}
	}
	return string(data), nil
}

// promptBook asks for each field, keeping the current value on an empty answer.
func promptBook(p *prompter, in *library.BookInput) error {
	in.Title, _ = p.askDefault("Title: ", in.Title)
	in.Author, _ = p.askDefault("Author: ", in.Author)
	in.ISBN, _ = p.askDefault("ISBN: ", in.ISBN)

	year := ""
	if in.PublicationYear != 0 {
		year = strconv.Itoa(in.PublicationYear)
	}
	year, _ = p.askDefault("Publication year: ", year)
	if year != "" {
		n, err := strconv.Atoi(year)
		if err != nil {
			return &output.CLIError{Summary: "Publication year must be a number", ExitCode: output.ExitUsageError}
		}
		in.PublicationYear = n
	}

	path, _ := p.ask("Path to text file (optional): ")
	if path != "" {
		content, err := readContentFile(path)
		if err != nil {
			return err
		}
		in.Content = content
	}
	return nil
}

func bookInputFrom(b library.Book) library.BookInput {
	return library.BookInput{
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		PublicationYear: b.PublicationYear,
		Content:         b.Content,
		Available:       b.Available,
	}
}

func renderBooks(books []library.Book, query string) error {
	if len(books) == 0 {
		if query != "" {
			printer.Info("No books found matching '%s'.", query)
		} else {
			printer.Info("No books found.")
		}
		return nil
	}

	table := output.NewTable(printer.Out(), []string{"ID", "Title", "Author", "Year", "Status"})
	for _, b := range books {
		year := ""
		if b.PublicationYear != 0 {
			year = strconv.Itoa(b.PublicationYear)
		}
		table.AddRow(
			strconv.FormatInt(b.ID, 10),
			output.Truncate(b.Title, 40),
			output.Truncate(b.Author, 25),
			year,
			printer.Availability(b.Available),
		)
	}
	if err := table.Render(); err != nil {
		return err
	}
	printer.Print("%d book(s)", len(books))
	return nil
}

func renderBook(b library.Book, identity *library.Identity) {
	printer.Header(b.Title)
	printer.Print("Author:  %s", b.Author)
	if b.ISBN != "" {
		printer.Print("ISBN:    %s", b.ISBN)
	}
	if b.PublicationYear != 0 {
		printer.Print("Year:    %d", b.PublicationYear)
	}
	printer.Print("Status:  %s", printer.Availability(b.Available))
	if b.Content != "" {
		printer.Print("\n%s", output.Truncate(b.Content, 500))
	}

	switch {
	case identity == nil:
		printer.Print("\n%s", printer.Dim("Log in to borrow this book."))
	case b.Available:
		printer.Print("\n%s", printer.Dim(fmt.Sprintf("Borrow it with 'library-catalog borrow %d'.", b.ID)))
	}
}
