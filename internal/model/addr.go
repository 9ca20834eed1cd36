package model

import (
	"fmt"
	"strings"
)

// Addr is a house-number-level address, embedding a snapshot of its
// parent Street (spec §3).
type Addr struct {
	Common
	HouseNumber string `json:"house_number"`
	Street      Street `json:"street"`
}

// City returns the name of the finest city-level admin in the chain, or of
// the finest admin overall if none is tagged city, used by
// ComposeAddrLabel (the Result Shaper applies the same rule in its own
// city helper).
func City(admins []AdminRef) string {
	for _, a := range admins {
		if a.ZoneType == ZoneCity {
			return a.Name
		}
	}
	if len(admins) > 0 {
		return admins[0].Name
	}
	return ""
}

// ComposeAddrLabel builds the canonical "{house_number} {street_name}
// ({city})" label (spec §4.A). It is a pure function so both the
// constructor and round-trip tests can call it to verify idempotency
// (spec §8).
func ComposeAddrLabel(houseNumber, streetName string, admins []AdminRef) string {
	city := City(admins)
	label := strings.TrimSpace(fmt.Sprintf("%s %s", houseNumber, streetName))
	if city != "" {
		label = fmt.Sprintf("%s (%s)", label, city)
	}
	return label
}

// NewAddr constructs an Addr, composing its label from the house number,
// street name and admin chain.
func NewAddr(id, houseNumber string, street Street, coord Coord, zipCodes []string, weight float64) (Addr, error) {
	if err := validateCommon(id, weight); err != nil {
		return Addr{}, fmt.Errorf("model: addr %q: %w", id, err)
	}
	label := ComposeAddrLabel(houseNumber, street.StreetName, street.AdministrativeRegions)
	if label == "" {
		return Addr{}, fmt.Errorf("model: addr %q composed an empty label", id)
	}
	return Addr{
		Common: Common{
			ID:                    id,
			Label:                 label,
			Name:                  street.StreetName,
			Coord:                 coord,
			ZipCodes:              zipCodes,
			Weight:                weight,
			AdministrativeRegions: street.AdministrativeRegions,
			Type:                  TypeAddr,
		},
		HouseNumber: houseNumber,
		Street:      street,
	}, nil
}

func (a Addr) MarshalBackend() ([]byte, error) { return marshalAs(a) }
