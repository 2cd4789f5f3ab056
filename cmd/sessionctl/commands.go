package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-session/authapi"
	"github.com/jrsteele09/go-auth-session/client"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/rs/zerolog/log"
)

type command func(ctx context.Context, cl *client.Client, args []string) error

var commands = map[string]command{
	"login":    login,
	"whoami":   whoami,
	"get":      get,
	"logout":   logout,
	"register": register,
}

func login(ctx context.Context, cl *client.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" || *password == "" {
		return errUsage
	}

	user, err := cl.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	printUser(user.Email, user.Name, user.ID, user.Roles)
	return nil
}

func whoami(_ context.Context, cl *client.Client, _ []string) error {
	state := cl.Store().State()
	if !state.Authenticated || state.User == nil {
		fmt.Println("Not signed in")
		return nil
	}
	printUser(state.User.Email, state.User.Name, state.User.ID, state.User.Roles)

	if tok, err := cl.Store().Token(); err == nil && !tok.Expiry.IsZero() {
		fmt.Printf("  token expires  %s (%s)\n", tok.Expiry.Local().Format(time.DateTime), time.Until(tok.Expiry).Round(time.Second))
	}
	return nil
}

func get(ctx context.Context, cl *client.Client, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	path := "/" + strings.TrimLeft(args[0], "/")

	fmt.Fprintf(os.Stderr, "%s %s\n", colour(http.MethodGet, methodColors), path)
	var data json.RawMessage
	if err := cl.DoJSON(ctx, http.MethodGet, path, nil, &data); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(data)
	}
	fmt.Println(pretty.String())
	return nil
}

func logout(ctx context.Context, cl *client.Client, _ []string) error {
	if err := cl.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func register(ctx context.Context, cl *client.Client, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	req := authapi.RegisterRequest{}
	fs.StringVar(&req.Name, "name", "", "display name")
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Password, "password", "", "account password, at least 8 characters")
	fs.StringVar(&req.Department, "department", "", "department")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if _, err := cl.Register(ctx, req); err != nil {
		return err
	}
	log.Info().Str("email", req.Email).Msg("Account created, sign in with: sessionctl login")
	return nil
}

func printUser(email, name string, id *int64, roles []string) {
	coloured := make([]string, 0, len(roles))
	for _, role := range roles {
		coloured = append(coloured, colour(role, roleColors))
	}

	idText := "-"
	if id != nil {
		idText = fmt.Sprint(utils.Value(id))
	}
	fmt.Printf("  email          %s\n", email)
	fmt.Printf("  name           %s\n", utils.FirstNonEmpty(name, "-"))
	fmt.Printf("  id             %s\n", idText)
	fmt.Printf("  roles          %s\n", strings.Join(coloured, " "))
}
