package f1

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/briangreenhill/pitwall/ergast"
)

func TestFormatDriverStandingsDropsUnclassified(t *testing.T) {
	out := FormatDriverStandings(2024, []ergast.DriverStanding{
		driverRow("1", "max_verstappen", "Red Bull", "437"),
		driverRow("2", "norris", "McLaren", "374"),
		driverRow("-", "bearman", "Ferrari", "7"),
	})
	assert.Contains(t, out, "## Driver Standings 2024")
	assert.Contains(t, out, "| -63\n")
	assert.NotContains(t, out, "bearman")
}

func TestFormatRaceResults(t *testing.T) {
	rr := RaceResults{
		Results: []ergast.Result{{Position: "1", Driver: ergast.Driver{GivenName: "Lando", FamilyName: "Norris"}, Constructor: ergast.Constructor{Name: "McLaren"}}},
		FastestLap: &FastestLap{Lap: "3", Time: "1:30.0", DriverCode: "NOR", Position: "1", Speed: NotAvailable},
	}
	out := FormatRaceResults(ergast.Race{RaceName: "Miami Grand Prix", Date: "2024-05-05"}, rr)
	assert.Contains(t, out, "## Miami Grand Prix (2024-05-05)")
	assert.Contains(t, out, "1 | Lando Norris | McLaren | N/A | N/A")
	assert.Contains(t, out, "Fastest lap: 1:30.0 on lap 3 (NOR, P1, N/A km/h)")
}

func TestFormatRacesMarksUpcoming(t *testing.T) {
	out := FormatRaces([]RaceOption{
		{Race: ergast.Race{Round: "2", RaceName: "Next"}, Selectable: false},
		{Race: ergast.Race{Round: "1", RaceName: "Done"}, Selectable: true},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[2], "Next (upcoming)")
	assert.NotContains(t, lines[3], "upcoming")
}

func TestFormatDriverDetail(t *testing.T) {
	out := FormatDriverDetail(DriverDetail{
		Season:   2024,
		Standing: driverRow("3", "leclerc", "Ferrari", "356"),
		Team:     "Ferrari",
		Age:      NotAvailable,
		Seasons:  "2018-2024",
	})
	assert.Contains(t, out, "- **Age:** N/A")
	assert.Contains(t, out, "- **Nationality:** British")
	assert.Contains(t, out, "- **Active seasons:** 2018-2024")
}
