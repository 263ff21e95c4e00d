package preview

import (
	"strings"

	"github.com/jonathan/cv-builder/internal/cv"
)

// ContactSeparator joins the parts of the contact line.
const ContactSeparator = " | "

// FormatPhone prefixes the number with its dial code: "(+33) 612345678".
func FormatPhone(code, number string) string {
	code = strings.TrimLeft(strings.TrimSpace(code), "+")
	number = strings.TrimSpace(number)
	switch {
	case number == "":
		return ""
	case code == "":
		return number
	default:
		return "(+" + code + ") " + number
	}
}

// FormatPlace joins city and country, dropping whichever is missing.
func FormatPlace(city, country string) string {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	switch {
	case city == "":
		return country
	case country == "":
		return city
	default:
		return city + ", " + country
	}
}

// ContactParts returns the non-empty parts of the contact line in order:
// email, phone, place. The city is left out when display hides it.
func ContactParts(p Personal, display cv.DisplaySettings) []string {
	city := p.City
	if display.HideCity {
		city = ""
	}
	var parts []string
	for _, part := range []string{
		strings.TrimSpace(p.Email),
		FormatPhone(p.PhoneCountryCode, p.Phone),
		FormatPlace(city, p.Country),
	} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// LinkParts returns the LinkedIn and website values not hidden by display.
func LinkParts(p Personal, display cv.DisplaySettings) []string {
	var parts []string
	if v := strings.TrimSpace(p.LinkedIn); v != "" && !display.HideLinkedIn {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(p.Website); v != "" && !display.HideWebsite {
		parts = append(parts, v)
	}
	return parts
}
