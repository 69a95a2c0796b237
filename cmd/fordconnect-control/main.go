// Command-line tool for sending FordConnect commands to vehicles

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/tsuyoikaze/fordconnect/internal/log"
	"github.com/tsuyoikaze/fordconnect/pkg/account"
	"github.com/tsuyoikaze/fordconnect/pkg/cli"
	"github.com/tsuyoikaze/fordconnect/pkg/protocol"
	"github.com/tsuyoikaze/fordconnect/pkg/vehicle"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRuns COMMAND against the configured account, or starts an interactive shell when no\nCOMMAND is given.\n")
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(acct *account.Account, car *vehicle.Vehicle, args []string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := execute(ctx, acct, car, args); err != nil {
		if errors.Is(err, protocol.ErrNotElectric) {
			writeErr("Command not available on this vehicle: %s", err)
		} else if code := protocol.HTTPStatus(err); code != 0 {
			writeErr("Failed to execute command (HTTP %d): %s", code, err)
		} else {
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(acct *account.Account, car *vehicle.Vehicle, timeout time.Duration) int {
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		runCommand(acct, car, args, timeout)
	}
	return 0
}

// findVehicle returns the vehicle selected by the configuration, fetching the account's
// vehicle list if the cached state does not include it.
func findVehicle(ctx context.Context, config *cli.Config, acct *account.Account) (*vehicle.Vehicle, error) {
	if config.VehicleID == "" {
		return nil, nil
	}
	if car := acct.Vehicle(config.VehicleID); car != nil {
		return car, nil
	}
	if _, err := acct.FetchVehicles(ctx); err != nil {
		return nil, err
	}
	car := acct.Vehicle(config.VehicleID)
	if car == nil {
		return nil, fmt.Errorf("account has no vehicle with id %s", config.VehicleID)
	}
	return car, nil
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		writeErr("Failed to load credential configuration: %s", err)
		return
	}

	var timeout time.Duration
	var verbose bool
	config.RegisterCommandLineFlags()
	flag.DurationVar(&timeout, "timeout", 3*time.Minute, "Command `timeout`, covering submission and polling")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Usage = Usage
	flag.Parse()
	config.ReadFromEnvironment()

	if verbose {
		log.SetLevel(log.LevelDebug)
	}

	acct, err := config.InteractiveAccount()
	if err != nil {
		writeErr("Failed to load account: %s", err)
		return
	}
	defer config.SaveState(acct)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	car, err := findVehicle(ctx, config, acct)
	cancel()
	if err != nil {
		writeErr("%s", err)
		return
	}

	if flag.NArg() > 0 {
		status = runCommand(acct, car, flag.Args(), timeout)
	} else {
		status = runInteractiveShell(acct, car, timeout)
	}
}
