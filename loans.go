package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"library-catalog/internal/output"
	"library-catalog/library"
)

var borrowCmd = &cobra.Command{
	Use:   "borrow <book-id>",
	Short: "Borrow a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lm, err := libraryManager()
		if err != nil {
			return err
		}
		if _, err := navigate(lm, "/loans"); err != nil {
			return err
		}
		bookID, err := parseID(args[0])
		if err != nil {
			return err
		}
		loan, err := lm.Borrow(cmd.Context(), nil, nil, bookID)
		if err != nil {
			return cliError("borrow the book", err)
		}
		printer.Success("Borrowed %s (loan %d)", loan.Title(), loan.ID)
		return nil
	},
}

var returnCmd = &cobra.Command{
	Use:   "return <loan-id>",
	Short: "Return a borrowed book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lm, err := libraryManager()
		if err != nil {
			return err
		}
		if _, err := navigate(lm, "/loans"); err != nil {
			return err
		}
		loanID, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := lm.ReturnLoan(cmd.Context(), nil, loanID); err != nil {
			return cliError("return the book", err)
		}
		printer.Success("Returned loan %d", loanID)
		return nil
	},
}

var loansCmd = &cobra.Command{
	Use:   "loans",
	Short: "Show your loans",
	Long: `Show active and returned loans.

Members see their own loans; administrators see every loan.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lm, err := libraryManager()
		if err != nil {
			return err
		}
		if _, err := navigate(lm, "/loans"); err != nil {
			return err
		}
		board, err := lm.MyLoans(cmd.Context())
		if err != nil {
			return cliError("load loans", err)
		}
		return renderLoans(board, library.CanAccess(lm.Whoami(), library.RequireAdmin))
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Members and their loan statistics (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lm, err := libraryManager()
		if err != nil {
			return err
		}
		if _, err := navigate(lm, "/admin/users"); err != nil {
			return err
		}
		search, _ := cmd.Flags().GetString("search")

		users, err := lm.UsersWithStats(cmd.Context())
		if err != nil {
			return cliError("load users", err)
		}
		return renderUsers(users, search)
	},
}

func init() {
	rootCmd.AddCommand(borrowCmd, returnCmd, loansCmd, usersCmd)
	usersCmd.Flags().StringP("search", "s", "", "filter by name, surname or email")
}

func renderLoans(board *library.LoanBoard, showBorrower bool) error {
	active, returned := board.Active(), board.Returned()

	printer.Header("Active Loans (" + strconv.Itoa(len(active)) + ")")
	if len(active) == 0 {
		printer.Print("No active loans.")
	} else if err := loanTable(active, showBorrower).Render(); err != nil {
		return err
	}

	printer.Header("Returned Loans (" + strconv.Itoa(len(returned)) + ")")
	if len(returned) == 0 {
		printer.Print("No returned loans yet.")
	} else if err := loanTable(returned, showBorrower).Render(); err != nil {
		return err
	}
	return nil
}

func loanTable(loans []library.Loan, showBorrower bool) *output.Table {
	headers := []string{"Loan", "Book", "Borrowed", "Returned", "Status"}
	if showBorrower {
		headers = append(headers, "Borrower")
	}
	table := output.NewTable(printer.Out(), headers)
	for _, l := range loans {
		row := []string{
			strconv.FormatInt(l.ID, 10),
			output.Truncate(l.Title(), 40),
			library.FormatDate(l.LoanDate),
			library.FormatDate(l.ReturnDate),
			printer.LoanStatus(string(l.Status)),
		}
		if showBorrower {
			row = append(row, borrowerName(l))
		}
		table.AddRow(row...)
	}
	return table
}

func borrowerName(l library.Loan) string {
	if l.User != nil && l.User.Name != "" {
		return l.User.Name
	}
	if id := l.BorrowerID(); id != 0 {
		return "user " + strconv.FormatInt(id, 10)
	}
	return ""
}

func renderUsers(users []library.UserWithStats, search string) error {
	totals := library.Totals(users)
	printer.Header("Admin Panel")
	printer.Print("Users: %d   Active loans: %d   Returned: %d   Total loans: %d",
		len(users), totals.Borrowed, totals.Returned, totals.Total)

	filtered := library.FilterUsers(users, search)
	if len(filtered) == 0 {
		printer.Info("No users found.")
		return nil
	}

	table := output.NewTable(printer.Out(), []string{"ID", "Name", "Email", "City", "Role", "Borrowed", "Returned", "Total"})
	for _, u := range filtered {
		table.AddRow(
			strconv.FormatInt(u.ID, 10),
			output.Truncate(u.Name+" "+u.Surname, 30),
			u.Email,
			u.City,
			string(u.Role),
			strconv.Itoa(u.Stats.Borrowed),
			strconv.Itoa(u.Stats.Returned),
			strconv.Itoa(u.Stats.Total),
		)
	}
	return table.Render()
}
