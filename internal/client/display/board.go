package display

import (
	"fmt"
	"io"
	"strings"
)

// RenderBoard writes the server's ASCII board, coloring pieces and coordinates
func RenderBoard(w io.Writer, asciiBoard string, color bool) {
	lines := strings.Split(asciiBoard, "\n")

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		// File legend lines carry no pieces
		legend := strings.HasPrefix(strings.TrimSpace(line), "a")

		var sb strings.Builder
		for _, char := range line {
			switch {
			case !color:
				sb.WriteRune(char)
			case char >= 'a' && char <= 'h' && legend:
				sb.WriteString(Cyan + string(char) + Reset)
			case char >= 'A' && char <= 'Z':
				sb.WriteString(Blue + string(char) + Reset)
			case char >= 'a' && char <= 'z':
				sb.WriteString(Red + string(char) + Reset)
			case char >= '1' && char <= '8':
				sb.WriteString(Cyan + string(char) + Reset)
			default:
				sb.WriteRune(char)
			}
		}
		fmt.Fprintln(w, sb.String())
	}
}

// ColorForTurn returns colored turn indicator
func ColorForTurn(turn string, color bool) string {
	if turn == "w" {
		return Paint(color, Blue, "White")
	}
	return Paint(color, Red, "Black")
}
