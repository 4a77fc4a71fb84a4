package matching

// Similarity computes Jaro-Winkler similarity in [0, 1] between two strings.
// Either side being empty yields 0. Comparison is rune-based so Japanese
// vendor text is handled correctly.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	ar := []rune(a)
	br := []rune(b)

	jaro := jaroSimilarity(ar, br)
	if jaro == 0 {
		return 0
	}

	// Winkler boost: common prefix up to 4 runes.
	prefix := 0
	for prefix < len(ar) && prefix < len(br) && prefix < 4 && ar[prefix] == br[prefix] {
		prefix++
	}

	const scaling = 0.1

	return jaro + float64(prefix)*scaling*(1-jaro)
}

func jaroSimilarity(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))

	matches := 0

	for i, ra := range a {
		lo := max(0, i-window)
		hi := min(len(b), i+window+1)

		for j := lo; j < hi; j++ {
			if bMatched[j] || b[j] != ra {
				continue
			}

			aMatched[i] = true
			bMatched[j] = true
			matches++

			break
		}
	}

	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0

	for i := range a {
		if !aMatched[i] {
			continue
		}

		for !bMatched[j] {
			j++
		}

		if a[i] != b[j] {
			transpositions++
		}

		j++
	}

	m := float64(matches)

	return (m/float64(len(a)) + m/float64(len(b)) + (m-float64(transpositions)/2)/m) / 3
}
