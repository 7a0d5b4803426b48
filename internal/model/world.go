package model

import "strings"

// Direction is a single grid step.
type Direction string

const (
	Up    Direction = "UP"
	Down  Direction = "DOWN"
	Left  Direction = "LEFT"
	Right Direction = "RIGHT"
	Stay  Direction = "STAY"
)

// Directions lists every valid direction.
var Directions = []Direction{Up, Down, Left, Right, Stay}

// ParseDirection maps a case-insensitive name to a Direction. Anything
// unrecognised becomes Stay.
func ParseDirection(s string) Direction {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case Up, Down, Left, Right, Stay:
		return d
	}
	return Stay
}

// Delta returns the position change for d. Y grows downward.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Status is the discrete state of a spatial agent.
type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusMoving   Status = "MOVING"
	StatusThinking Status = "THINKING"
	StatusTalking  Status = "TALKING"
)
