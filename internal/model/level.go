package model

import "fmt"

// Level is the protection level of a buffer. Valid levels are 1 through 5.
// Higher levels rotate by a larger angle and decohere sooner.
type Level int

const (
	Level1 Level = 1
	Level2 Level = 2
	Level3 Level = 3
	Level4 Level = 4
	Level5 Level = 5
)

// DefaultLevel is the level used by the conversion command.
const DefaultLevel = Level3

// Levels lists every valid protection level in ascending order.
var Levels = []Level{Level1, Level2, Level3, Level4, Level5}

// Valid reports whether l is in [1,5].
func (l Level) Valid() bool {
	return l >= Level1 && l <= Level5
}

func (l Level) String() string {
	return fmt.Sprintf("L%d", int(l))
}
