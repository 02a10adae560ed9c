package f1

import "strings"

// DefaultTeamColor is used for constructors missing from the table.
const DefaultTeamColor = "#6B7280"

var teamColors = map[string]string{
	"Red Bull":       "#3671C6",
	"Ferrari":        "#E8002D",
	"Mercedes":       "#27F4D2",
	"McLaren":        "#FF8000",
	"Aston Martin":   "#229971",
	"Alpine F1 Team": "#FF87BC",
	"Williams":       "#64C4FF",
	"RB F1 Team":     "#6692FF",
	"AlphaTauri":     "#5E8FAA",
	"Alfa Romeo":     "#C92D4B",
	"Sauber":         "#52E252",
	"Haas F1 Team":   "#B6BABD",
	"Racing Point":   "#F596C8",
	"Renault":        "#FFF500",
	"Toro Rosso":     "#469BFF",
	"Force India":    "#F596C8",
}

// TeamColor returns the display colour for a constructor name.
func TeamColor(team string) string {
	if c, ok := teamColors[team]; ok {
		return c
	}
	return DefaultTeamColor
}

// TeamTextColor picks a readable text colour for a team badge.
func TeamTextColor(team string) string {
	if TeamColor(team) == "#FFF500" {
		return "#000000"
	}
	return "#FFFFFF"
}

// nationality or country name -> ISO 3166 alpha-2
var nationalityISO = map[string]string{
	"British":       "GB",
	"Dutch":         "NL",
	"Australian":    "AU",
	"Italian":       "IT",
	"Thai":          "TH",
	"German":        "DE",
	"French":        "FR",
	"Canadian":      "CA",
	"Monegasque":    "MC",
	"Japanese":      "JP",
	"Spanish":       "ES",
	"Brazilian":     "BR",
	"New Zealander": "NZ",
	"Danish":        "DK",
	"Mexican":       "MX",
	"Chinese":       "CN",
	"American":      "US",
	"Finnish":       "FI",
	"Argentine":     "AR",
	"Argentinian":   "AR",
	"Swedish":       "SE",
	"Polish":        "PL",
	"Indonesian":    "ID",
	"Belgian":       "BE",
	"Hungarian":     "HU",
	"Swiss":         "CH",
	"Austrian":      "AT",
	"Russian":       "RU",
}

var countryISO = map[string]string{
	"UK":            "GB",
	"Netherlands":   "NL",
	"Australia":     "AU",
	"Italy":         "IT",
	"Thailand":      "TH",
	"Germany":       "DE",
	"France":        "FR",
	"Canada":        "CA",
	"Monaco":        "MC",
	"Japan":         "JP",
	"Spain":         "ES",
	"Brazil":        "BR",
	"New Zealand":   "NZ",
	"Denmark":       "DK",
	"Mexico":        "MX",
	"China":         "CN",
	"USA":           "US",
	"United States": "US",
	"Finland":       "FI",
	"Argentina":     "AR",
	"Sweden":        "SE",
	"Poland":        "PL",
	"Indonesia":     "ID",
	"Belgium":       "BE",
	"Hungary":       "HU",
	"Bahrain":       "BH",
	"Saudi Arabia":  "SA",
	"Austria":       "AT",
	"UAE":           "AE",
	"Singapore":     "SG",
	"Qatar":         "QA",
	"Azerbaijan":    "AZ",
}

// NationalityFlag returns the flag emoji for a driver or constructor
// nationality, or "" if unknown.
func NationalityFlag(nationality string) string {
	return flagEmoji(nationalityISO[nationality])
}

// CountryFlag returns the flag emoji for a circuit's country, or "".
func CountryFlag(country string) string {
	return flagEmoji(countryISO[country])
}

func flagEmoji(iso string) string {
	if len(iso) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(iso) {
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}
