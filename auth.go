package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	Long: `Sign in with your email and password.

Missing values are prompted for; the password is read without echo.
The session is stored locally and reused until you log out.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lm, err := libraryManager()
		if err != nil {
			return err
		}
		if err := lm.Logout(); err != nil {
			return cliError("log out", err)
		}
		printer.Success("Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"profile"},
	Short:   "Show the signed-in account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lm, err := libraryManager()
		if err != nil {
			return err
		}
		if _, err := navigate(lm, "/profile"); err != nil {
			return err
		}
		renderProfile(lm.Whoami())
		return nil
	},
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "List the pages available to you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lm, err := libraryManager()
		if err != nil {
			return err
		}
		lm.Session().Load()
		renderMenu(lm.Navigator().Items(), lm.Session().Current())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, menuCmd)

	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prompted when omitted)")

	registerCmd.Flags().String("name", "", "first name")
	registerCmd.Flags().String("surname", "", "last name")
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("password", "", "password, also used as confirmation (prompted when omitted)")
	registerCmd.Flags().String("address", "", "street address")
	registerCmd.Flags().String("city", "", "city")
}

func runLogin(cmd *cobra.Command, args []string) error {
	lm, err := libraryManager()
	if err != nil {
		return err
	}
	if _, err := navigate(lm, library.LoginPath); err != nil {
		return err
	}

	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	req, err := loginForm(p, email, password)
	if err != nil {
		return cliError("read credentials", err)
	}
	return doLogin(cmd, lm, req)
}

func loginForm(p *prompter, email, password string) (library.LoginRequest, error) {
	if email == "" {
		email, _ = p.ask("Email: ")
	}
	if password == "" {
		var err error
		if password, err = p.readPassword("Password: "); err != nil {
			return library.LoginRequest{}, fmt.Errorf("failed to read password: %w", err)
		}
	}
	return library.LoginRequest{Email: email, Password: password}, nil
}

func doLogin(cmd *cobra.Command, lm *library.LibraryManager, req library.LoginRequest) error {
	identity, err := lm.Login(cmd.Context(), req)
	if err != nil {
		return cliError("sign in", err)
	}
	printer.Success("Signed in as %s (%s)", identity.DisplayName(), identity.Role)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	lm, err := libraryManager()
	if err != nil {
		return err
	}
	if _, err := navigate(lm, "/register"); err != nil {
		return err
	}

	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	flag := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	req, err := registerForm(p, library.RegisterRequest{
		Name:     flag("name"),
		Surname:  flag("surname"),
		Email:    flag("email"),
		Password: flag("password"),
		Address:  flag("address"),
		City:     flag("city"),
	})
	if err != nil {
		return cliError("read registration", err)
	}
	return doRegister(cmd, lm, req)
}

// registerForm prompts for every field not already filled in.
func registerForm(p *prompter, req library.RegisterRequest) (library.RegisterRequest, error) {
	fields := []struct {
		label string
		value *string
	}{
		{"First name: ", &req.Name},
		{"Last name: ", &req.Surname},
		{"Email: ", &req.Email},
	}
	for _, f := range fields {
		if *f.value == "" {
			*f.value, _ = p.ask(f.label)
		}
	}

	if req.Password == "" {
		var err error
		if req.Password, err = p.readPassword("Password: "); err != nil {
			return req, fmt.Errorf("failed to read password: %w", err)
		}
		if req.ConfirmPassword, err = p.readPassword("Confirm password: "); err != nil {
			return req, fmt.Errorf("failed to read password: %w", err)
		}
	} else {
		req.ConfirmPassword = req.Password
	}

	if req.Address == "" {
		req.Address, _ = p.ask("Address: ")
	}
	if req.City == "" {
		req.City, _ = p.ask("City: ")
	}
	return req, nil
}

func doRegister(cmd *cobra.Command, lm *library.LibraryManager, req library.RegisterRequest) error {
	identity, err := lm.Register(cmd.Context(), req)
	if err != nil {
		return cliError("register", err)
	}
	printer.Success("Welcome, %s! You are now signed in.", identity.DisplayName())
	return nil
}

func renderProfile(identity *library.Identity) {
	if identity == nil {
		return
	}
	printer.Header("Profile")
	printer.Print("Name:    %s %s", identity.Name, identity.Surname)
	printer.Print("Email:   %s", identity.Email)
	if identity.Address != "" || identity.City != "" {
		printer.Print("Address: %s, %s", identity.Address, identity.City)
	}
	printer.Print("Role:    %s", identity.Role)
	printer.Print("ID:      %d", identity.ID)
}

func renderMenu(items []library.MenuItem, identity *library.Identity) {
	printer.Header("Menu")
	for i, item := range items {
		printer.Print("  %d. %-14s %s", i+1, item.Label, printer.Dim(item.Path))
	}
	if identity == nil {
		printer.Print("  %s", printer.Dim("Login / Register to borrow books"))
		return
	}
	printer.Print("  %s", printer.Dim("Signed in as "+identity.DisplayName()))
}
