package app

// RandSource is the slice of *rand.Rand the shuffle needs.
type RandSource interface {
	Intn(n int) int
}

// Shuffle permutes s in place with Fisher–Yates, drawing from rnd exactly
// len(s)-1 times.
func Shuffle[T any](s []T, rnd RandSource) {
	for i := len(s) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
