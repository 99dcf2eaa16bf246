package models

import "time"

// DailyBaseline holds one instrument's extremes for the last completed session.
type DailyBaseline struct {
	Symbol     string    `json:"symbol"`
	Sector     string    `json:"sector"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Open       float64   `json:"open"`
	Close      float64   `json:"close"`
	Source     string    `json:"source"`
	CapturedOn time.Time `json:"captured_on"`
}
