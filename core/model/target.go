package model

import "github.com/civigrid/evacd/core/geo"

// Target is a person requiring evacuation.
type Target struct {
	ID       string
	Name     string
	Location geo.Point
	Notes    string // free-text accessibility notes
	Contact  string // optional contact channel
	City     string // service area assigned for the current run, may be empty
}
