// Utility for performing the browser login flow and storing the resulting tokens

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tsuyoikaze/fordconnect/internal/log"
	"github.com/tsuyoikaze/fordconnect/pkg/cli"
)

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: %s [OPTION...]\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Walks through the browser login flow and saves the resulting tokens under")
	fmt.Fprintf(w, "-token-name in the system keyring (or -token-file). The token name defaults to $%s.\n", cli.EnvTokenName)
}

func main() {
	returnCode := 1
	defer func() {
		os.Exit(returnCode)
	}()

	config, err := cli.NewConfig(cli.FlagOAuth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load credential configuration: %s\n", err)
		return
	}

	var timeout time.Duration
	var verbose bool
	config.RegisterCommandLineFlags()
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Time allowed for the login flow")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Usage = usage
	flag.Parse()
	config.ReadFromEnvironment()

	if verbose {
		log.SetLevel(log.LevelDebug)
	}

	if config.KeyringTokenName == "" && config.TokenFilename == "" {
		fmt.Fprintf(os.Stderr, "Must provide a token location with -token-name, -token-file, or $%s\n", cli.EnvTokenName)
		return
	}

	acct, err := config.InteractiveAccount()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load account: %s\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := acct.Authenticate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %s\n", err)
		return
	}

	if err := config.SaveToken(acct.Token()); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving token: %s\n", err)
		return
	}

	fmt.Printf("Logged in as %s\n", acct.Subject)
	returnCode = 0
}
