// Package level maps review ratings onto discrete mastery levels.
package level

import "fmt"

// Rating is the user's response to a card review.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

// DefaultMax is the highest level unless configured otherwise.
const DefaultMax = 2

// ParseRating converts the numeric grade given by a user.
func ParseRating(grade int) (Rating, error) {
	r := Rating(grade)
	if r < Again || r > Easy {
		return 0, fmt.Errorf("invalid rating %d: must be between %d and %d", grade, Again, Easy)
	}
	return r, nil
}

func (r Rating) String() string {
	switch r {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	default:
		return fmt.Sprintf("rating(%d)", int(r))
	}
}

// Policy holds the bounds of the level scale.
type Policy struct {
	Max int
}

// DefaultPolicy provides the three-level scale 0, 1, 2.
func DefaultPolicy() *Policy {
	return &Policy{Max: DefaultMax}
}

// Next returns the level after a review with the given rating.
// Again drops the card back to 0, Hard keeps it unchanged even above Max,
// Good moves one level up and Easy two. Promotions are clamped to [0, Max].
func (p *Policy) Next(current int, rating Rating) int {
	next := current
	switch rating {
	case Again:
		return 0
	case Hard:
		return current
	case Good:
		next = current + 1
	case Easy:
		next = current + 2
	}
	return p.clamp(next)
}

// Levels returns every level of the scale, lowest first.
func (p *Policy) Levels() []int {
	levels := make([]int, 0, p.Max+1)
	for l := 0; l <= p.Max; l++ {
		levels = append(levels, l)
	}
	return levels
}

func (p *Policy) clamp(l int) int {
	if l < 0 {
		return 0
	}
	if l > p.Max {
		return p.Max
	}
	return l
}
