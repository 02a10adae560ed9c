package f1

import (
	"context"
	"strconv"

	"github.com/briangreenhill/pitwall/ergast"
)

// DriverDetail is everything the driver screen shows.
type DriverDetail struct {
	Season    int                   `json:"season"`
	Standing  ergast.DriverStanding `json:"standing"`
	Team      string                `json:"team"`
	TeamColor string                `json:"teamColor"`
	Flag      string                `json:"flag"`
	Age       string                `json:"age"`
	Seasons   string                `json:"seasons"`
}

// DriverDetail combines the driver's season profile with their career span.
// A failure to load the career seasons is reported rather than hidden.
func (s *Service) DriverDetail(ctx context.Context, driverID string, season int) (DriverDetail, error) {
	standing, err := s.DriverProfile(ctx, driverID, season)
	if err != nil {
		return DriverDetail{}, err
	}
	seasons, err := s.DriverSeasons(ctx, driverID)
	if err != nil {
		return DriverDetail{}, err
	}

	d := DriverDetail{
		Season:    season,
		Standing:  standing,
		Team:      OrValue(standing.Team()),
		TeamColor: TeamColor(standing.Team()),
		Flag:      NationalityFlag(standing.Driver.Nationality),
		Age:       NotAvailable,
		Seasons:   SeasonSpan(seasons),
	}
	if age, ok := Age(standing.Driver.DateOfBirth, s.now()); ok {
		d.Age = strconv.Itoa(age)
	}
	return d, nil
}
