package board

import "fmt"

// Square indexes the 8x8 grid as rank*8 + file.
// File 0 is 'a', rank 0 is '1'. White's back rank is rank 0.
type Square uint8

// NoSquare marks an absent square (e.g. no en-passant target)
const NoSquare Square = 64

// NewSquare builds a square from zero-based file and rank.
// Out-of-range coordinates are a programming error and panic.
func NewSquare(file, rank int) Square {
	if !InBounds(file, rank) {
		panic(fmt.Sprintf("board: square out of range: file=%d rank=%d", file, rank))
	}
	return Square(rank*8 + file)
}

// InBounds reports whether file and rank both lie in [0,7]
func InBounds(file, rank int) bool {
	return file >= 0 && file < 8 && rank >= 0 && rank < 8
}

// ParseSquare converts algebraic text ("e4") to a Square
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q: expected 2 characters", s)
	}
	if s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square %q: out of range", s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// MustSquare is ParseSquare for literals known to be valid
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }

func (s Square) Valid() bool { return s < NoSquare }

// Offset returns the square shifted by df files and dr ranks, if still on the board
func (s Square) Offset(df, dr int) (Square, bool) {
	f, r := s.File()+df, s.Rank()+dr
	if !InBounds(f, r) {
		return NoSquare, false
	}
	return Square(r*8 + f), true
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+s.File(), '1'+s.Rank())
}

func (s Square) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(text []byte) error {
	if string(text) == "-" {
		*s = NoSquare
		return nil
	}
	sq, err := ParseSquare(string(text))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}
