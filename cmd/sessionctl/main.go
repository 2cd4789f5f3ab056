package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-session/client"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errUsage = errors.New("usage")

func main() {
	err := run(os.Args[1:])
	switch {
	case errors.Is(err, errUsage):
		usage()
		os.Exit(2)
	case err != nil:
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	if len(args) == 0 {
		return errUsage
	}
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl, err := client.New(ctx, c, client.WithNavigator(sessions.NavigatorFunc(func(route string) {
		log.Info().Str("route", route).Msg("Session ended, sign in again with: sessionctl login")
	})))
	if err != nil {
		return err
	}
	defer cl.Close()

	cmd, ok := commands[args[0]]
	if !ok {
		return errUsage
	}
	return cmd(ctx, cl, args[1:])
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.GetDebug() && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(os.Stderr, myFigure.String())
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: sessionctl <command> [flags]

Commands:
  login -email <email> -password <password>
  whoami
  get <path>
  logout
  register -name <name> -email <email> -password <password> -department <department>`)
}
