package f1

import (
	"fmt"
	"strings"

	"github.com/briangreenhill/pitwall/ergast"
)

// FormatDriverStandings renders the driver table.
func FormatDriverStandings(season int, rows []ergast.DriverStanding) string {
	rows = ClassifiedDrivers(rows)
	var b strings.Builder
	fmt.Fprintf(&b, "## Driver Standings %d\n", season)
	b.WriteString("Pos | Driver | Code | Nationality | Team | Points | Gap\n")
	b.WriteString("----|--------|------|-------------|------|--------|----\n")
	leader := ""
	if len(rows) > 0 {
		leader = rows[0].Points
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%s | %s %s | %s | %s | %s | %s | %s\n",
			r.Position,
			r.Driver.GivenName, r.Driver.FamilyName,
			OrValue(r.Driver.Code),
			r.Driver.Nationality,
			OrValue(r.Team()),
			OrValue(r.Points),
			GapToLeader(leader, r.Points),
		)
	}
	return b.String()
}

// FormatConstructorStandings renders the constructor table.
func FormatConstructorStandings(season int, rows []ergast.ConstructorStanding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Constructor Standings %d\n", season)
	b.WriteString("Pos | Team | Nationality | Points | Wins\n")
	b.WriteString("----|------|-------------|--------|-----\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s | %s | %s | %s | %s\n",
			r.Position, r.Constructor.Name, r.Constructor.Nationality,
			OrValue(r.Points), OrValue(r.Wins))
	}
	fmt.Fprintf(&b, "Total points: %s\n", TotalPoints(rows).String())
	return b.String()
}

// FormatDrivers renders the drivers page.
func FormatDrivers(season int, rows []ergast.DriverStanding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Drivers %d\n", season)
	b.WriteString("Pos | Driver | No. | Nationality | Points | Wins\n")
	b.WriteString("----|--------|-----|-------------|--------|-----\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s | %s %s | %s | %s | %s | %s\n",
			r.Position, r.Driver.GivenName, r.Driver.FamilyName,
			OrValue(r.Driver.PermanentNumber), r.Driver.Nationality,
			OrValue(r.Points), OrValue(r.Wins))
	}
	return b.String()
}

// FormatRaces renders the season calendar, newest first.
func FormatRaces(options []RaceOption) string {
	var b strings.Builder
	b.WriteString("Round | Date | Race | Circuit | Country\n")
	b.WriteString("------|------|------|---------|--------\n")
	for _, r := range options {
		name := r.RaceName
		if !r.Selectable {
			name += " (upcoming)"
		}
		fmt.Fprintf(&b, "%s | %s | %s | %s | %s\n",
			r.Round, r.Date, name, r.Circuit.CircuitID, r.Circuit.Location.Country)
	}
	return b.String()
}

// FormatRaceResults renders a race classification and its fastest lap.
func FormatRaceResults(race ergast.Race, rr RaceResults) string {
	var b strings.Builder
	if race.RaceName != "" {
		fmt.Fprintf(&b, "## %s (%s)\n", race.RaceName, race.Date)
		fmt.Fprintf(&b, "- **Circuit:** %s, %s, %s\n",
			race.Circuit.CircuitName, race.Circuit.Location.Locality, race.Circuit.Location.Country)
	}
	b.WriteString("Pos | Driver | Team | Time | Status\n")
	b.WriteString("----|--------|------|------|-------\n")
	for _, r := range rr.Results {
		t := NotAvailable
		if r.Time != nil && r.Time.Time != "" {
			t = r.Time.Time
		}
		fmt.Fprintf(&b, "%s | %s %s | %s | %s | %s\n",
			r.Position, r.Driver.GivenName, r.Driver.FamilyName,
			r.Constructor.Name, t, OrValue(r.Status))
	}
	if fl := rr.FastestLap; fl != nil {
		fmt.Fprintf(&b, "Fastest lap: %s on lap %s (%s, P%s, %s km/h)\n",
			fl.Time, fl.Lap, fl.DriverCode, fl.Position, fl.Speed)
	}
	return b.String()
}

// FormatPitStops renders the pit stop table.
func FormatPitStops(rows []PitStopRow) string {
	var b strings.Builder
	b.WriteString("Lap | Time | Driver | Team | Stop | Duration\n")
	b.WriteString("----|------|--------|------|------|---------\n")
	for _, p := range rows {
		fmt.Fprintf(&b, "%s | %s | %s | %s | %s | %ss\n",
			p.Lap, p.Time, p.DriverID, p.Team, p.Stop, p.Duration)
	}
	return b.String()
}

// FormatDriverDetail renders the driver screen.
func FormatDriverDetail(d DriverDetail) string {
	drv := d.Standing.Driver
	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s\n", drv.GivenName, drv.FamilyName)
	fmt.Fprintf(&b, "- **Season:** %d\n", d.Season)
	fmt.Fprintf(&b, "- **Team:** %s\n", d.Team)
	fmt.Fprintf(&b, "- **Number:** %s\n", OrValue(drv.PermanentNumber))
	fmt.Fprintf(&b, "- **Nationality:** %s\n", strings.TrimSpace(d.Flag+" "+drv.Nationality))
	fmt.Fprintf(&b, "- **Age:** %s\n", d.Age)
	fmt.Fprintf(&b, "- **Position:** %s\n", OrValue(d.Standing.Position))
	fmt.Fprintf(&b, "- **Points:** %s\n", OrValue(d.Standing.Points))
	fmt.Fprintf(&b, "- **Wins:** %s\n", OrValue(d.Standing.Wins))
	fmt.Fprintf(&b, "- **Active seasons:** %s\n", d.Seasons)
	return b.String()
}
