package ergast

// Response envelopes. Every field the API sends as a string stays a string;
// conversion happens in the consumer so missing values can render as N/A.

type envelope struct {
	MRData *mrData `json:"MRData"`
}

type mrData struct {
	Limit          string          `json:"limit"`
	Offset         string          `json:"offset"`
	Total          string          `json:"total"`
	RaceTable      *raceTable      `json:"RaceTable,omitempty"`
	StandingsTable *standingsTable `json:"StandingsTable,omitempty"`
	SeasonTable    *seasonTable    `json:"SeasonTable,omitempty"`
}

type raceTable struct {
	Season string `json:"season"`
	Races  []Race `json:"Races"`
}

type standingsTable struct {
	Season         string          `json:"season"`
	StandingsLists []StandingsList `json:"StandingsLists"`
}

type seasonTable struct {
	Seasons []Season `json:"Seasons"`
}

// Race is one grand prix weekend. Results and PitStops are only populated by
// the endpoints that return them.
type Race struct {
	Season   string    `json:"season"`
	Round    string    `json:"round"`
	URL      string    `json:"url,omitempty"`
	RaceName string    `json:"raceName"`
	Circuit  Circuit   `json:"Circuit"`
	Date     string    `json:"date"`
	Time     string    `json:"time,omitempty"`
	Results  []Result  `json:"Results,omitempty"`
	PitStops []PitStop `json:"PitStops,omitempty"`
}

type Circuit struct {
	CircuitID   string   `json:"circuitId"`
	URL         string   `json:"url,omitempty"`
	CircuitName string   `json:"circuitName"`
	Location    Location `json:"Location"`
}

type Location struct {
	Lat      string `json:"lat"`
	Long     string `json:"long"`
	Locality string `json:"locality"`
	Country  string `json:"country"`
}

type Driver struct {
	DriverID        string `json:"driverId"`
	PermanentNumber string `json:"permanentNumber,omitempty"`
	Code            string `json:"code,omitempty"`
	URL             string `json:"url,omitempty"`
	GivenName       string `json:"givenName"`
	FamilyName      string `json:"familyName"`
	DateOfBirth     string `json:"dateOfBirth,omitempty"`
	Nationality     string `json:"nationality"`
}

type Constructor struct {
	ConstructorID string `json:"constructorId"`
	URL           string `json:"url,omitempty"`
	Name          string `json:"name"`
	Nationality   string `json:"nationality"`
}

// Result is a driver's classification in a race.
type Result struct {
	Number       string      `json:"number"`
	Position     string      `json:"position"`
	PositionText string      `json:"positionText"`
	Points       string      `json:"points"`
	Driver       Driver      `json:"Driver"`
	Constructor  Constructor `json:"Constructor"`
	Grid         string      `json:"grid"`
	Laps         string      `json:"laps"`
	Status       string      `json:"status"`
	Time         *RaceTime   `json:"Time,omitempty"`
	FastestLap   *FastestLap `json:"FastestLap,omitempty"`
}

type RaceTime struct {
	Millis string `json:"millis,omitempty"`
	Time   string `json:"time"`
}

type FastestLap struct {
	Rank         string        `json:"rank,omitempty"`
	Lap          string        `json:"lap"`
	Time         *RaceTime     `json:"Time,omitempty"`
	AverageSpeed *AverageSpeed `json:"AverageSpeed,omitempty"`
}

type AverageSpeed struct {
	Units string `json:"units"`
	Speed string `json:"speed"`
}

type StandingsList struct {
	Season               string                `json:"season"`
	Round                string                `json:"round"`
	DriverStandings      []DriverStanding      `json:"DriverStandings,omitempty"`
	ConstructorStandings []ConstructorStanding `json:"ConstructorStandings,omitempty"`
}

type DriverStanding struct {
	Position     string        `json:"position"`
	PositionText string        `json:"positionText"`
	Points       string        `json:"points"`
	Wins         string        `json:"wins"`
	Driver       Driver        `json:"Driver"`
	Constructors []Constructor `json:"Constructors"`
}

// Team returns the name of the first constructor listed for the driver, or "".
func (d DriverStanding) Team() string {
	if len(d.Constructors) == 0 {
		return ""
	}
	return d.Constructors[0].Name
}

type ConstructorStanding struct {
	Position     string      `json:"position"`
	PositionText string      `json:"positionText"`
	Points       string      `json:"points"`
	Wins         string      `json:"wins"`
	Constructor  Constructor `json:"Constructor"`
}

type PitStop struct {
	DriverID string `json:"driverId"`
	Lap      string `json:"lap"`
	Stop     string `json:"stop"`
	Time     string `json:"time"`
	Duration string `json:"duration"`
}

type Season struct {
	Season string `json:"season"`
	URL    string `json:"url,omitempty"`
}
