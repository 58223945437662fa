package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Menu-driven interactive session",
	Long: `Start an interactive session.

The menu shows the pages your role can open. Pick one by number, or type a
path such as /books/3. Pages you cannot open send you to the login prompt.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// shell keeps the lists the user is looking at so that confirmed changes show
// up without refetching.
type shell struct {
	ctx     context.Context
	lm      *library.LibraryManager
	p       *prompter
	catalog *library.Catalog
	board   *library.LoanBoard
}

func runShell(cmd *cobra.Command, args []string) error {
	lm, err := libraryManager()
	if err != nil {
		return err
	}
	sh := &shell{
		ctx: cmd.Context(),
		lm:  lm,
		p:   newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
	}

	printer.Print("Welcome to the Library Catalog!")
	for {
		lm.Session().Load()
		items := lm.Navigator().Items()
		renderMenu(items, lm.Session().Current())
		printer.Print("%s", printer.Dim("Pick a number or type a path; 'logout' signs out, 'exit' quits."))

		line, ok := sh.p.ask("\n> ")
		if !ok {
			return nil
		}

		switch line {
		case "":
			continue
		case "exit", "quit":
			printer.Print("Goodbye!")
			return nil
		case "logout":
			sh.handleLogout()
			continue
		}

		path := line
		if n, err := strconv.Atoi(line); err == nil {
			if n < 1 || n > len(items) {
				printer.Error("Choose a number between 1 and %d.", len(items))
				continue
			}
			path = items[n-1].Path
		} else if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		sh.open(path)
	}
}

// open resolves path and shows its view, or follows the guard's redirect.
func (sh *shell) open(path string) {
	match, err := sh.lm.Router().Resolve(path)
	if err != nil {
		printer.Error("Unknown page: %s", path)
		return
	}

	if match.Decision.State == library.Redirecting {
		if match.Decision.Target == library.LoginPath {
			printer.Warning("Please log in to continue.")
			sh.handleLogin()
			return
		}
		printer.Warning("Admin access required.")
		sh.handleHome()
		return
	}

	switch match.Route.View {
	case library.ViewHome:
		sh.handleHome()
	case library.ViewLogin:
		sh.handleLogin()
	case library.ViewRegister:
		sh.handleRegister()
	case library.ViewBooks:
		sh.handleBooks()
	case library.ViewBookDetail:
		sh.withID(match, sh.handleBookDetail)
	case library.ViewAddBook:
		sh.handleAddBook()
	case library.ViewEditBook:
		sh.withID(match, sh.handleEditBook)
	case library.ViewLoans:
		sh.handleLoans()
	case library.ViewProfile:
		renderProfile(sh.lm.Session().Current())
	case library.ViewAdminUsers:
		sh.handleAdminUsers()
	}
}

func (sh *shell) withID(match *library.Match, fn func(int64)) {
	id, err := parseID(match.Params["id"])
	if err != nil {
		printer.FormatError(err)
		return
	}
	fn(id)
}

func (sh *shell) report(action string, err error) {
	printer.FormatError(cliError(action, err))
}

func (sh *shell) handleHome() {
	identity := sh.lm.Session().Current()
	printer.Header("Library Catalog")
	switch {
	case identity == nil:
		printer.Print("Browse the catalog, or log in to borrow books.")
	case library.CanAccess(identity, library.RequireAdmin):
		printer.Print("Welcome back, %s. You can manage books and members.", identity.DisplayName())
	default:
		printer.Print("Welcome back, %s.", identity.DisplayName())
	}
}

func (sh *shell) handleLogin() {
	req, err := loginForm(sh.p, "", "")
	if err != nil {
		sh.report("read credentials", err)
		return
	}
	identity, err := sh.lm.Login(sh.ctx, req)
	if err != nil {
		sh.report("sign in", err)
		return
	}
	sh.board = nil
	printer.Success("Signed in as %s (%s)", identity.DisplayName(), identity.Role)
}

func (sh *shell) handleRegister() {
	req, err := registerForm(sh.p, library.RegisterRequest{})
	if err != nil {
		sh.report("read registration", err)
		return
	}
	identity, err := sh.lm.Register(sh.ctx, req)
	if err != nil {
		sh.report("register", err)
		return
	}
	sh.board = nil
	printer.Success("Welcome, %s! You are now signed in.", identity.DisplayName())
}

func (sh *shell) handleLogout() {
	if err := sh.lm.Logout(); err != nil {
		sh.report("log out", err)
		return
	}
	sh.board = nil
	printer.Success("Signed out")
}

func (sh *shell) handleBooks() {
	catalog, err := sh.lm.LoadCatalog(sh.ctx)
	if err != nil {
		sh.report("load books", err)
		return
	}
	sh.catalog = catalog

	query, _ := sh.p.ask("Filter by title (Enter for all): ")
	onlyAvailable := sh.p.confirm("Only available books?")
	if err := renderBooks(catalog.Filter(library.BookFilter{Query: query, OnlyAvailable: onlyAvailable}), query); err != nil {
		sh.report("show books", err)
		return
	}

	id, _, err := sh.p.askInt("Book ID to open (Enter to go back): ")
	if err != nil {
		printer.Error("%v", err)
		return
	}
	if id > 0 {
		sh.handleBookDetail(id)
	}
}

func (sh *shell) handleBookDetail(id int64) {
	book, err := sh.lm.GetBook(sh.ctx, id)
	if err != nil {
		sh.report("load the book", err)
		return
	}
	identity := sh.lm.Session().Current()
	renderBook(*book, identity)
	if identity == nil {
		return
	}

	var actions []string
	if book.Available {
		actions = append(actions, "[b]orrow")
	}
	if library.CanAccess(identity, library.RequireAdmin) {
		actions = append(actions, "[e]dit", "[d]elete")
	}
	if len(actions) == 0 {
		return
	}

	choice, _ := sh.p.ask(fmt.Sprintf("%s, or Enter to go back: ", strings.Join(actions, ", ")))
	switch strings.ToLower(choice) {
	case "b", "borrow":
		sh.borrow(book.ID)
	case "e", "edit":
		sh.open(fmt.Sprintf("/books/%d/edit", book.ID))
	case "d", "delete":
		sh.deleteBook(book.ID)
	}
}

func (sh *shell) borrow(bookID int64) {
	loan, err := sh.lm.Borrow(sh.ctx, sh.catalog, sh.board, bookID)
	if err != nil {
		sh.report("borrow the book", err)
		return
	}
	printer.Success("Borrowed %s (loan %d)", loan.Title(), loan.ID)
}

func (sh *shell) deleteBook(id int64) {
	if !sh.p.confirm(fmt.Sprintf("Delete book %d?", id)) {
		return
	}
	if err := sh.lm.DeleteBook(sh.ctx, sh.catalog, id); err != nil {
		sh.report("delete the book", err)
		return
	}
	printer.Success("Deleted book %d", id)
	if sh.catalog != nil {
		printer.Print("%d book(s) left in the catalog.", sh.catalog.Len())
	}
}

func (sh *shell) handleAddBook() {
	printer.Header("Add Book")
	in := library.BookInput{Available: true}
	if err := promptBook(sh.p, &in); err != nil {
		sh.report("read the book", err)
		return
	}
	book, err := sh.lm.AddBook(sh.ctx, sh.catalog, in)
	if err != nil {
		sh.report("add the book", err)
		return
	}
	printer.Success("Added book ID %d: %s", book.ID, book.Title)
}

func (sh *shell) handleEditBook(id int64) {
	current, err := sh.lm.GetBook(sh.ctx, id)
	if err != nil {
		sh.report("load the book", err)
		return
	}
	printer.Header("Edit Book")
	in := bookInputFrom(*current)
	if err := promptBook(sh.p, &in); err != nil {
		sh.report("read the book", err)
		return
	}
	in.Available = sh.p.confirm("Available for borrowing?")

	book, err := sh.lm.EditBook(sh.ctx, sh.catalog, id, in)
	if err != nil {
		sh.report("update the book", err)
		return
	}
	printer.Success("Updated book ID %d: %s", book.ID, book.Title)
}

func (sh *shell) handleLoans() {
	board, err := sh.lm.MyLoans(sh.ctx)
	if err != nil {
		sh.report("load loans", err)
		return
	}
	sh.board = board
	showBorrower := library.CanAccess(sh.lm.Session().Current(), library.RequireAdmin)
	if err := renderLoans(board, showBorrower); err != nil {
		sh.report("show loans", err)
		return
	}
	if len(board.Active()) == 0 {
		return
	}

	id, _, err := sh.p.askInt("Loan ID to return (Enter to go back): ")
	if err != nil {
		printer.Error("%v", err)
		return
	}
	if id == 0 {
		return
	}
	if loan, ok := board.Find(id); !ok || loan.Status != library.LoanActive {
		printer.Error("Loan %d is not an active loan.", id)
		return
	}
	if err := sh.lm.ReturnLoan(sh.ctx, board, id); err != nil {
		sh.report("return the book", err)
		return
	}
	printer.Success("Returned loan %d", id)
	if err := renderLoans(board, showBorrower); err != nil {
		sh.report("show loans", err)
	}
}

func (sh *shell) handleAdminUsers() {
	users, err := sh.lm.UsersWithStats(sh.ctx)
	if err != nil {
		sh.report("load users", err)
		return
	}
	search, _ := sh.p.ask("Search users (Enter for all): ")
	if err := renderUsers(users, search); err != nil {
		sh.report("show users", err)
	}
}
