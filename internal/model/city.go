package model

import (
	"fmt"
	"strings"
)

// City is a single persisted city record.
// SearchKey is derived once at construction and never recomputed; only
// IsFavorite changes after a record has been stored.
type City struct {
	ID          int     `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	CountryCode string  `json:"country_code" db:"country_code"`
	Lat         float64 `json:"lat" db:"lat"`
	Lon         float64 `json:"lon" db:"lon"`
	IsFavorite  bool    `json:"is_favorite" db:"is_favorite"`
	SearchKey   string  `json:"-" db:"search_key"`
}

// NewCity builds a non-favorite city and computes its search key.
func NewCity(id int, name, countryCode string, lat, lon float64) City {
	return City{
		ID:          id,
		Name:        name,
		CountryCode: countryCode,
		Lat:         lat,
		Lon:         lon,
		SearchKey:   SearchKey(name, countryCode),
	}
}

// SearchKey returns the normalized "name, country" key used for prefix search.
func SearchKey(name, countryCode string) string {
	return strings.ToLower(name + ", " + countryCode)
}

// DisplayName returns "Name, CC".
func (c City) DisplayName() string {
	return c.Name + ", " + c.CountryCode
}

// CoordinatesString formats the coordinates for display.
func (c City) CoordinatesString() string {
	return fmt.Sprintf("Lat: %.4f, Lon: %.4f", c.Lat, c.Lon)
}

// RawCity is one entry of the downloaded dataset.
// The `_id` field name is dictated by the upstream source.
type RawCity struct {
	ID      int      `json:"_id"`
	Name    string   `json:"name"`
	Country string   `json:"country"`
	Coord   RawCoord `json:"coord"`
}

// RawCoord holds the coordinates of a RawCity.
type RawCoord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// ToCity converts a dataset entry into a storable record.
func (r RawCity) ToCity() City {
	return NewCity(r.ID, r.Name, r.Country, r.Coord.Lat, r.Coord.Lon)
}
