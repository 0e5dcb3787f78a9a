package mapbuf

// Direction is one of the 8 neighbour directions, in the fixed order used
// by smoothing: N, NE, E, SE, S, SW, W, NW.
type Direction int

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
	numDirections
)

// Directions lists all neighbour directions in index order.
var Directions = [numDirections]Direction{
	North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest,
}

// Orthogonal lists the 4 orthogonal directions N, E, S, W.
var Orthogonal = [4]Direction{North, East, South, West}

var dirDX = [numDirections]int{0, 1, 1, 1, 0, -1, -1, -1}
var dirDY = [numDirections]int{-1, -1, 0, 1, 1, 1, 0, -1}

var dirNames = [numDirections]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Delta returns the x/y step for the direction.
func (d Direction) Delta() (int, int) {
	return dirDX[d], dirDY[d]
}

// IsOrthogonal reports whether d is N, E, S or W.
func (d Direction) IsOrthogonal() bool {
	return d%2 == 0
}

func (d Direction) String() string {
	if d < 0 || d >= numDirections {
		return "?"
	}
	return dirNames[d]
}
