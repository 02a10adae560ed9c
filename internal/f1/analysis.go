package f1

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/briangreenhill/pitwall/ergast"
)

// NotAvailable is shown wherever the API omitted a value.
const NotAvailable = "N/A"

const dateLayout = "2006-01-02"

// FastestLap summarises the fastest lap of a race.
type FastestLap struct {
	Lap        string `json:"lap"`
	Time       string `json:"time"`
	DriverCode string `json:"driverCode"`
	Position   string `json:"position"`
	Speed      string `json:"speed"`
}

// RaceResults is the cached payload of a race's classification.
type RaceResults struct {
	Results    []ergast.Result `json:"results"`
	FastestLap *FastestLap     `json:"fastestLap"`
}

// PitStopRow is a pit stop annotated with the driver's team.
type PitStopRow struct {
	ergast.PitStop
	Team  string `json:"team"`
	Color string `json:"color"`
}

// RaceOption is an entry of the race picker.
type RaceOption struct {
	ergast.Race
	Selectable bool `json:"selectable"`
}

// OrValue returns s, or N/A when s is empty.
func OrValue(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

// SortNewestFirst orders races by date, most recent first. Races with an
// unparseable date sort last.
func SortNewestFirst(races []ergast.Race) {
	sort.SliceStable(races, func(i, j int) bool {
		di, erri := time.Parse(dateLayout, races[i].Date)
		dj, errj := time.Parse(dateLayout, races[j].Date)
		switch {
		case erri != nil:
			return false
		case errj != nil:
			return true
		}
		return di.After(dj)
	})
}

// hasStarted reports whether the race date is on or before today.
func hasStarted(r ergast.Race, now time.Time) bool {
	d, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return !d.After(today)
}

// LatestRace returns the first race of a newest-first list whose date is on
// or before now.
func LatestRace(races []ergast.Race, now time.Time) (ergast.Race, bool) {
	for _, r := range races {
		if hasStarted(r, now) {
			return r, true
		}
	}
	return ergast.Race{}, false
}

// RaceOptions marks races that have not happened yet as not selectable.
func RaceOptions(races []ergast.Race, now time.Time) []RaceOption {
	out := make([]RaceOption, 0, len(races))
	for _, r := range races {
		out = append(out, RaceOption{Race: r, Selectable: hasStarted(r, now)})
	}
	return out
}

// FindRace returns the race held at circuitID.
func FindRace(races []ergast.Race, circuitID string) (ergast.Race, bool) {
	for _, r := range races {
		if r.Circuit.CircuitID == circuitID {
			return r, true
		}
	}
	return ergast.Race{}, false
}

// ExtractFastestLap returns the lap of the fastest-lap holder (rank 1). When
// no result carries a rank the first result with lap data is used.
func ExtractFastestLap(results []ergast.Result) *FastestLap {
	var pick *ergast.Result
	for i := range results {
		fl := results[i].FastestLap
		if fl == nil {
			continue
		}
		if fl.Rank == "1" {
			pick = &results[i]
			break
		}
		if pick == nil {
			pick = &results[i]
		}
	}
	if pick == nil {
		return nil
	}

	fl := pick.FastestLap
	out := &FastestLap{
		Lap:        OrValue(fl.Lap),
		Time:       NotAvailable,
		DriverCode: OrValue(pick.Driver.Code),
		Position:   OrValue(pick.Position),
		Speed:      NotAvailable,
	}
	if fl.Time != nil && fl.Time.Time != "" {
		out.Time = fl.Time.Time
	}
	if fl.AverageSpeed != nil && fl.AverageSpeed.Speed != "" {
		out.Speed = fl.AverageSpeed.Speed
	}
	return out
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// ClassifiedDrivers drops standings rows without a numeric position.
func ClassifiedDrivers(standings []ergast.DriverStanding) []ergast.DriverStanding {
	out := make([]ergast.DriverStanding, 0, len(standings))
	for _, s := range standings {
		if isNumeric(s.Position) {
			out = append(out, s)
		}
	}
	return out
}

// ParsePoints parses a points string such as "437" or "12.5". Invalid input
// counts as zero.
func ParsePoints(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// GapToLeader returns the points gap to the first row, formatted for display
// ("-" for the leader itself).
func GapToLeader(leaderPoints, points string) string {
	gap := ParsePoints(leaderPoints).Sub(ParsePoints(points))
	if gap.IsZero() {
		return "-"
	}
	return "-" + gap.String()
}

// TotalPoints sums the points of every row.
func TotalPoints(standings []ergast.ConstructorStanding) decimal.Decimal {
	total := decimal.Zero
	for _, s := range standings {
		total = total.Add(ParsePoints(s.Points))
	}
	return total
}

// TeamsByDriver maps driver ids to their team name. Drivers without a
// constructor map to "Unknown".
func TeamsByDriver(standings []ergast.DriverStanding) map[string]string {
	out := make(map[string]string, len(standings))
	for _, s := range standings {
		team := s.Team()
		if team == "" {
			team = "Unknown"
		}
		out[s.Driver.DriverID] = team
	}
	return out
}

// JoinPitStops annotates each stop with the driver's team and colour.
func JoinPitStops(stops []ergast.PitStop, teams map[string]string) []PitStopRow {
	out := make([]PitStopRow, 0, len(stops))
	for _, p := range stops {
		team, ok := teams[p.DriverID]
		if !ok {
			team = "Unknown"
		}
		out = append(out, PitStopRow{PitStop: p, Team: team, Color: TeamColor(team)})
	}
	return out
}

// Age returns the age in whole years at now for a YYYY-MM-DD birth date.
func Age(dateOfBirth string, now time.Time) (int, bool) {
	dob, err := time.Parse(dateLayout, dateOfBirth)
	if err != nil {
		return 0, false
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age, true
}

// SeasonSpan renders the first and last active season as "2001-2024".
func SeasonSpan(seasons []ergast.Season) string {
	years := make([]int, 0, len(seasons))
	for _, s := range seasons {
		if y, err := strconv.Atoi(s.Season); err == nil {
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		return "No active seasons available."
	}
	sort.Ints(years)
	return strconv.Itoa(years[0]) + "-" + strconv.Itoa(years[len(years)-1])
}

// SeasonChoices returns the n most recent seasons ending at current.
func SeasonChoices(current, n int) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, current-i)
	}
	return out
}
