package vehicle

import "fmt"

// Location is a vehicle's last reported position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp,omitempty"`
}

func (l Location) String() string {
	return fmt.Sprintf("(%v,%v)", l.Latitude, l.Longitude)
}

// LatLonPair returns the position as "lat,lon", the form most mapping apps accept.
func (l Location) LatLonPair() string {
	return fmt.Sprintf("%v,%v", l.Latitude, l.Longitude)
}

// GoogleMapsLink returns a desktop-browser link to the position on Google Maps.
func (l Location) GoogleMapsLink() string {
	return fmt.Sprintf("http://maps.google.com/maps?t=m&q=loc:%v+%v", l.Latitude, l.Longitude)
}
