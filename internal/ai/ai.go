// Package ai defines the contract of the optional remote match scorer.
package ai

import (
	"context"

	"github.com/spigell/matchmaker/internal/learning"
	"github.com/spigell/matchmaker/internal/vehicle"
)

// Request is everything a remote scorer sees for one vehicle.
type Request struct {
	Vehicle     *vehicle.Vehicle
	Preferences *vehicle.Preferences
	History     learning.History
	// Inventory resolves history ids for the learning context.
	Inventory vehicle.Index
	// Tally is optional. When nil it is built from History and Inventory.
	Tally *learning.Tally
}

// Assessment is a parsed remote reply.
type Assessment struct {
	Score     int    `json:"match_score"`
	Reasoning string `json:"reasoning,omitempty"`
	Raw       string `json:"-"`
	// Source names the provider that produced the score.
	Source string `json:"-"`
}

// Scorer asks a remote service for a match score.
type Scorer interface {
	Score(ctx context.Context, req *Request) (*Assessment, error)
	Name() string
}
