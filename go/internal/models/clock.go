package models

import "fmt"

// GameClock is the shared countdown for the game in progress.
type GameClock struct {
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Period  int  `json:"period"`
	Running bool `json:"running"`
	Locked  bool `json:"locked"`
}

// Format renders the remaining time as zero padded MM:SS.
func (c GameClock) Format() string {
	return fmt.Sprintf("%02d:%02d", c.Minutes, c.Seconds)
}
