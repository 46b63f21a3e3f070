package core

import (
	"fmt"

	"github.com/google/uuid"
)

type Color byte

const (
	ColorWhite Color = iota + 1
	ColorBlack
)

func (c Color) String() string {
	if c == ColorWhite {
		return "w"
	} else if c == ColorBlack {
		return "b"
	} else {
		return "-"
	}
}

// Name returns the long form used in log and error messages
func (c Color) Name() string {
	switch c {
	case ColorWhite:
		return "white"
	case ColorBlack:
		return "black"
	default:
		return "none"
	}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor accepts "w", "b", "white", "black" and "-" (no color)
func ParseColor(s string) (Color, error) {
	switch s {
	case "w", "white":
		return ColorWhite, nil
	case "b", "black":
		return ColorBlack, nil
	case "-", "":
		return 0, nil
	default:
		return 0, fmt.Errorf("invalid color: %q", s)
	}
}

func OppositeColor(c Color) Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// Player is a seat in a game
type Player struct {
	ID    string `json:"id"`
	Color Color  `json:"color"`
	Name  string `json:"name,omitempty"`
}

// PlayerConfig for API requests
type PlayerConfig struct {
	ID   string `json:"id,omitempty" validate:"omitempty,uuid"`
	Name string `json:"name,omitempty" validate:"omitempty,max=40"`
}

// NewPlayer creates a Player from PlayerConfig, assigning an ID when none is given
func NewPlayer(config PlayerConfig, color Color) *Player {
	id := config.ID
	if id == "" {
		id = uuid.New().String()
	}
	return &Player{
		ID:    id,
		Color: color,
		Name:  config.Name,
	}
}
