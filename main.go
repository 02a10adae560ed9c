package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/briangreenhill/pitwall/ergast"
	"github.com/briangreenhill/pitwall/internal/app"
	"github.com/briangreenhill/pitwall/internal/config"
	"github.com/briangreenhill/pitwall/internal/f1"
	"github.com/briangreenhill/pitwall/internal/logging"
)

const version = "0.1.0"

func main() {
	if err := runCLI(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pitwall <command> [args]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  standings [year]             Driver standings")
	fmt.Fprintln(w, "  constructors [year]          Constructor standings")
	fmt.Fprintln(w, "  drivers [year]               Drivers of the season")
	fmt.Fprintln(w, "  races [year]                 Season calendar, newest first")
	fmt.Fprintln(w, "  results [circuitId] [year]   Race results (latest race when omitted)")
	fmt.Fprintln(w, "  pitstops <round> [year]      Pit stops of a round")
	fmt.Fprintln(w, "  driver <driverId> [year]     Driver profile")
	fmt.Fprintln(w, "  warm [year]                  Prefetch races and standings")
	fmt.Fprintln(w, "  sweep                        Drop expired cache entries")
	fmt.Fprintln(w, "  kinds                        List cached data kinds")
	fmt.Fprintln(w, "  help, version")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  CACHE_BACKEND      memory, file, sqlite, redis or postgres (default file)")
	fmt.Fprintln(w, "  CACHE_DIR          Directory of the file cache (default ~/.pitwall_cache)")
	fmt.Fprintln(w, "  ERGAST_BASE_URL    API base URL")
	fmt.Fprintln(w, "  LOG_LEVEL          debug, info, warn, error")
}

func runCLI(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		printUsage(out)
		return nil
	}
	switch args[0] {
	case "help", "--help", "-h":
		printUsage(out)
		return nil
	case "version", "--version", "-v":
		fmt.Fprintf(out, "pitwall v%s\n", version)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := app.Setup(ctx, cfg, logging.Console(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer a.Close()

	output, err := runCommand(ctx, a.F1, args[0], args[1:])
	if err != nil {
		return err
	}
	fmt.Fprint(out, output)
	return nil
}

func runCommand(ctx context.Context, svc *f1.Service, cmd string, args []string) (string, error) {
	switch cmd {
	case "standings":
		season, err := seasonArg(svc, args, 0)
		if err != nil {
			return "", err
		}
		rows, err := svc.DriverStandings(ctx, season)
		if err != nil {
			return "", err
		}
		return f1.FormatDriverStandings(season, rows), nil

	case "constructors":
		season, err := seasonArg(svc, args, 0)
		if err != nil {
			return "", err
		}
		rows, err := svc.ConstructorStandings(ctx, season)
		if err != nil {
			return "", err
		}
		return f1.FormatConstructorStandings(season, rows), nil

	case "drivers":
		season, err := seasonArg(svc, args, 0)
		if err != nil {
			return "", err
		}
		rows, err := svc.DriversPage(ctx, season)
		if err != nil {
			return "", err
		}
		return f1.FormatDrivers(season, rows), nil

	case "races":
		season, err := seasonArg(svc, args, 0)
		if err != nil {
			return "", err
		}
		races, err := svc.Races(ctx, season)
		if err != nil {
			return "", err
		}
		return f1.FormatRaces(f1.RaceOptions(races, svc.Now())), nil

	case "results":
		return runResults(ctx, svc, args)

	case "pitstops":
		if len(args) < 1 {
			return "", fmt.Errorf("usage: pitstops <round> [year]")
		}
		round, err := strconv.Atoi(args[0])
		if err != nil || round < 1 {
			return "", fmt.Errorf("invalid round %q", args[0])
		}
		season, err := seasonArg(svc, args, 1)
		if err != nil {
			return "", err
		}
		rows, err := svc.PitStopsWithTeams(ctx, season, round)
		if err != nil {
			return "", err
		}
		return f1.FormatPitStops(rows), nil

	case "driver":
		if len(args) < 1 {
			return "", fmt.Errorf("usage: driver <driverId> [year]")
		}
		season, err := seasonArg(svc, args, 1)
		if err != nil {
			return "", err
		}
		d, err := svc.DriverDetail(ctx, args[0], season)
		if err != nil {
			return "", err
		}
		return f1.FormatDriverDetail(d), nil

	case "warm":
		season, err := seasonArg(svc, args, 0)
		if err != nil {
			return "", err
		}
		if err := svc.Warm(ctx, season); err != nil {
			return "", err
		}
		return fmt.Sprintf("Season %d cached.\n", season), nil

	case "sweep":
		res, err := svc.Sweep(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Scanned %d entries: %d expired, %d invalid, %d evicted, %d kept.\n",
			res.Scanned, res.Expired, res.Invalid, res.Evicted, res.Retained), nil

	case "kinds":
		var b strings.Builder
		b.WriteString("Kind | Key | TTL\n")
		b.WriteString("-----|-----|----\n")
		for _, name := range svc.Kinds().List() {
			k := svc.Kinds().MustGet(name)
			fmt.Fprintf(&b, "%s | %s | %s\n", k.Name, k.Prefix+"…", k.TTL)
		}
		return b.String(), nil

	default:
		return "", fmt.Errorf("unknown command: %s", cmd)
	}
}

// runResults prints the results of the race at the given circuit, or of the
// latest race when no circuit is given or the first argument is a year.
func runResults(ctx context.Context, svc *f1.Service, args []string) (string, error) {
	circuit := ""
	seasonIdx := 0
	if len(args) > 0 {
		if _, err := strconv.Atoi(args[0]); err != nil {
			circuit = args[0]
			seasonIdx = 1
		}
	}
	season, err := seasonArg(svc, args, seasonIdx)
	if err != nil {
		return "", err
	}

	races, err := svc.Races(ctx, season)
	if err != nil {
		return "", err
	}
	var race ergast.Race
	if circuit == "" {
		r, ok := f1.LatestRace(races, svc.Now())
		if !ok {
			return "", f1.ErrNoResults
		}
		race = r
	} else if r, ok := f1.FindRace(races, circuit); ok {
		race = r
	} else {
		race = ergast.Race{Circuit: ergast.Circuit{CircuitID: circuit}}
	}

	rr, err := svc.RaceResults(ctx, season, race.Circuit.CircuitID)
	if err != nil {
		return "", err
	}
	return f1.FormatRaceResults(race, rr), nil
}

// seasonArg parses args[i] as a season, defaulting to the current one.
func seasonArg(svc *f1.Service, args []string, i int) (int, error) {
	if len(args) <= i {
		return svc.CurrentSeason(), nil
	}
	season, err := strconv.Atoi(args[i])
	if err != nil || !svc.ValidSeason(season) {
		return 0, fmt.Errorf("%w: %q", f1.ErrInvalidSeason, args[i])
	}
	return season, nil
}
