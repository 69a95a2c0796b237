package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tsuyoikaze/fordconnect/pkg/account"
	"github.com/tsuyoikaze/fordconnect/pkg/vehicle"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrCommandLineArgs = errors.New("invalid command line arguments")
)

type Argument struct {
	name string
	help string
}

type Handler func(ctx context.Context, acct *account.Account, car *vehicle.Vehicle, args map[string]string) error

type Command struct {
	help            string
	requiresVehicle bool // True if the command targets a single vehicle (-vehicle-id)
	args            []Argument
	handler         Handler
}

func printVehicle(v *vehicle.Vehicle) {
	fmt.Printf("%d %s %s: %s (%s)\n", v.Year, v.Snapshot.Make, v.Model, v.Nickname, v.Snapshot.ID)
	if !v.Detailed {
		return
	}
	engine := v.EngineType
	if engine == "" {
		engine = "unknown"
	}
	fmt.Printf("  Engine: %s, Running: %v\n", engine, v.EngineRunning)
	fmt.Printf("  Odometer: %v, Fuel/Charge: %v%%\n", v.Odometer, v.FuelLevel)
	fmt.Printf("  Locked: %v, Location: %v\n", v.Locked, v.Location)
}

var commands = map[string]*Command{
	"list": {
		help: "Fetch and print the vehicles on the account",
		handler: func(ctx context.Context, acct *account.Account, _ *vehicle.Vehicle, _ map[string]string) error {
			vehicles, err := acct.FetchVehicles(ctx)
			if err != nil {
				return err
			}
			for _, v := range vehicles {
				printVehicle(v)
			}
			return nil
		},
	},
	"info": {
		help:            "Print the vehicle's cached state",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			if !car.Detailed {
				if err := car.UpdateFromServer(ctx); err != nil {
					return err
				}
			}
			printVehicle(car)
			return nil
		},
	},
	"update": {
		help:            "Ask the vehicle to push fresh state to the server (wakes the modem)",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			return car.UpdateFromVehicle(ctx)
		},
	},
	"lock": {
		help:            "Lock the vehicle's doors",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			return car.Lock(ctx)
		},
	},
	"unlock": {
		help:            "Unlock the vehicle's doors",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			return car.Unlock(ctx)
		},
	},
	"start-engine": {
		help:            "Start the engine remotely",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			return car.StartEngine(ctx)
		},
	},
	"stop-engine": {
		help:            "Stop a remotely started engine",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			return car.StopEngine(ctx)
		},
	},
	"start-charge": {
		help:            "Start charging (EV only)",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			return car.StartCharge(ctx)
		},
	},
	"stop-charge": {
		help:            "Stop charging (EV only)",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			return car.StopCharge(ctx)
		},
	},
	"locate": {
		help:            "Ask the vehicle for a fresh GPS fix and print a map link",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			if err := car.RefreshLocation(ctx); err != nil {
				return err
			}
			if car.Location == nil {
				return errors.New("vehicle did not report a location")
			}
			fmt.Println(car.Location.GoogleMapsLink())
			return nil
		},
	},
	"signal": {
		help:            "Flash the lights and honk; prints the command id",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			commandID, err := car.SendSignal(ctx)
			if err != nil {
				return err
			}
			fmt.Println(commandID)
			return nil
		},
	},
	"signal-cancel": {
		help:            "Cancel a pending signal command",
		requiresVehicle: true,
		args: []Argument{
			{name: "COMMAND_ID", help: "Id printed by the signal command"},
		},
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, args map[string]string) error {
			status, err := car.CancelSignal(ctx, args["COMMAND_ID"])
			if err != nil {
				return err
			}
			fmt.Println(status)
			return nil
		},
	},
	"charge-schedules": {
		help:            "Print the vehicle's charge schedules (raw JSON)",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			body, err := car.ChargeSchedules(ctx)
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		},
	},
	"departure-times": {
		help:            "Print the vehicle's departure times (raw JSON)",
		requiresVehicle: true,
		handler: func(ctx context.Context, _ *account.Account, car *vehicle.Vehicle, _ map[string]string) error {
			body, err := car.DepartureTimes(ctx)
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		},
	},
}

func execute(ctx context.Context, acct *account.Account, car *vehicle.Vehicle, args []string) error {
	if len(args) == 0 {
		return ErrUnknownCommand
	}
	info, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	if info.requiresVehicle && car == nil {
		return errors.New("command requires a vehicle; provide -vehicle-id")
	}
	if len(args)-1 != len(info.args) {
		var names []string
		for _, arg := range info.args {
			names = append(names, arg.name)
		}
		return fmt.Errorf("%w: usage: %s %s", ErrCommandLineArgs, args[0], strings.Join(names, " "))
	}
	params := make(map[string]string)
	for i, arg := range info.args {
		params[arg.name] = args[i+1]
	}
	return info.handler(ctx, acct, car, params)
}
