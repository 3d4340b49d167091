package pattern

// Step durations of the built-in sequences, in milliseconds.
const (
	WaveStepDuration        = 500
	AlternatingStepDuration = 1000
)

var (
	fullRow    = [GridCols]int{100, 100, 100, 100}
	halfRow    = [GridCols]int{50, 50, 50, 50}
	checkerRow = [GridCols]int{100, 0, 100, 0}
)

// WaveSequence sweeps one motor row at a time from top to bottom, at
// full intensity on the front panel and half intensity on the back.
func WaveSequence() []Step {
	steps := make([]Step, GridRows)
	for row := 0; row < GridRows; row++ {
		steps[row].Front[row] = fullRow
		steps[row].Back[row] = halfRow
	}
	return steps
}

// AlternatingSequence pulses all front motors, then all back motors,
// then a checkerboard on each panel.
func AlternatingSequence() []Step {
	var allOn Grid
	var checker Grid
	for row := 0; row < GridRows; row++ {
		allOn[row] = fullRow
		checker[row] = checkerRow
	}
	return []Step{
		{Front: allOn},
		{Back: allOn},
		{Front: checker},
		{Back: checker},
	}
}
