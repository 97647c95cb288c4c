package game

// checkpointPercents are the progress fractions at which group play pauses.
var checkpointPercents = []int{30, 60, 90, 100}

// Checkpoints returns the question indices, strictly increasing, at which a
// group quiz of n questions intermits. The last one is always n-1.
func Checkpoints(n int) []int {
	if n <= 0 {
		return nil
	}
	out := []int{}
	for _, p := range checkpointPercents {
		idx := (n*p+99)/100 - 1
		if len(out) > 0 && out[len(out)-1] >= idx {
			continue
		}
		out = append(out, idx)
	}
	return out
}

func IsCheckpoint(checkpoints []int, index int) bool {
	for _, c := range checkpoints {
		if c == index {
			return true
		}
	}
	return false
}
