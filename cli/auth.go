package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"istock.com/client"
	"istock.com/dto"
)

type loginCmd struct {
	env      *Env
	username string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in and store the access token" }
func (*loginCmd) Usage() string {
	return `istock login -u <username> [-p <password>]

  Signs in and stores the access token for later commands. The password is
  read from ISTOCK_PASSWORD or prompted for when -p is omitted.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Username")
	f.StringVar(&c.password, "p", "", "Password")
}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.username == "" {
		fmt.Fprintln(c.env.Err, "Please enter a username with -u")
		return subcommands.ExitUsageError
	}
	password, ok := c.env.password(c.password)
	if !ok {
		return subcommands.ExitUsageError
	}

	api := c.env.client()
	// a rejected password is not an expired session
	api.SetOnUnauthorized(nil)
	sess := client.NewSession(api)
	if err := sess.Login(ctx, c.username, password); err != nil {
		fmt.Fprintf(c.env.Err, "Login failed: %s\n", sess.Err())
		return subcommands.ExitFailure
	}
	fmt.Fprintf(c.env.Out, "Logged in as %s.\n", sess.User().Username)
	return subcommands.ExitSuccess
}

// password resolves the flag value, ISTOCK_PASSWORD, then a prompt.
func (e *Env) password(flagValue string) (string, bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if v := os.Getenv("ISTOCK_PASSWORD"); v != "" {
		return v, true
	}
	v, err := e.prompt("Password: ")
	if err != nil {
		fmt.Fprintln(e.Err, "Please enter a password")
		return "", false
	}
	return v, true
}

type logoutCmd struct{ env *Env }

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "remove the stored access token" }
func (*logoutCmd) Usage() string {
	return `istock logout

  Removes the stored access token.
`
}
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (c *logoutCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := client.NewSession(c.env.client()).Logout(); err != nil {
		return c.env.fail("logging out", err)
	}
	fmt.Fprintln(c.env.Out, "Logged out.")
	return subcommands.ExitSuccess
}

type registerCmd struct {
	env      *Env
	username string
	email    string
	password string
	fullName string
	risk     string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an account and sign in" }
func (*registerCmd) Usage() string {
	return `istock register -u <username> -e <email> [-p <password>] [-name <full name>] [-risk low|medium|high]

  Creates an account, then signs in with the same credentials.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Username, 3 to 50 letters or digits")
	f.StringVar(&c.email, "e", "", "Email address")
	f.StringVar(&c.password, "p", "", "Password, at least 8 characters")
	f.StringVar(&c.fullName, "name", "", "Full name")
	f.StringVar(&c.risk, "risk", "medium", "Risk level: low, medium or high")
}

func (c *registerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.username == "" || c.email == "" {
		fmt.Fprintln(c.env.Err, "Both -u and -e are required")
		return subcommands.ExitUsageError
	}
	password, ok := c.env.password(c.password)
	if !ok {
		return subcommands.ExitUsageError
	}

	sess := client.NewSession(c.env.client())
	err := sess.Register(ctx, dto.RegisterRequest{
		Username:  c.username,
		Email:     c.email,
		Password:  password,
		FullName:  c.fullName,
		RiskLevel: c.risk,
	})
	if err != nil {
		fmt.Fprintf(c.env.Err, "Registration failed: %s\n", sess.Err())
		return subcommands.ExitFailure
	}
	fmt.Fprintf(c.env.Out, "Welcome %s, you are now logged in.\n", c.username)
	return subcommands.ExitSuccess
}

type whoamiCmd struct{ env *Env }

func (*whoamiCmd) Name() string     { return "whoami" }
func (*whoamiCmd) Synopsis() string { return "show the signed in user" }
func (*whoamiCmd) Usage() string {
	return `istock whoami

  Validates the stored token and prints the signed in user.
`
}
func (*whoamiCmd) SetFlags(*flag.FlagSet) {}

func (c *whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.env.requireLogin() {
		return subcommands.ExitFailure
	}
	u, err := c.env.client().CurrentUser(ctx)
	if err != nil {
		return c.env.fail("checking the session", err)
	}
	fmt.Fprintf(c.env.Out, "%s <%s>, risk level %s\n", u.Username, u.Email, u.RiskLevel)
	return subcommands.ExitSuccess
}
