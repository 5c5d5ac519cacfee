package ticklake

import "iter"

// GenerateKeys expands a dataset path format against a selection into the
// finite set of object keys reachable by combining every axis the
// template references.
//
// The returned sequence is lazy and restartable: nothing is materialized
// up front, and ranging over it again re-runs the expansion. Each axis is
// enumerated once no matter how many tokens reference it, so a date axis
// used in two tokens still contributes one combination per day. Key order
// is not a contractual guarantee. Generation never consults storage;
// whether a key actually exists is resolved by the downloader.
//
// A placeholder-free format yields exactly one key equal to the format
// itself, for any selection. Validation errors (empty symbols, inverted
// ranges, a futures template with no expiration range) surface here,
// before the first key.
func GenerateKeys(pathFormat string, sel Selection) (iter.Seq[string], error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	tokens := TokenizePathFormat(pathFormat)

	// Distinct axes in order of first appearance.
	var axes []Axis
	seen := make(map[Axis]bool)
	for i := range tokens {
		a := tokens[i].Axis()
		if a == AxisNone || seen[a] {
			continue
		}
		seen[a] = true
		axes = append(axes, a)
	}

	fillSeqs := make([]iter.Seq[Filler], len(axes))
	axisIndex := make(map[Axis]int, len(axes))
	for i, a := range axes {
		seq, err := axisFills(a, sel)
		if err != nil {
			return nil, err
		}
		fillSeqs[i] = seq
		axisIndex[a] = i
	}

	return func(yield func(string) bool) {
		for combo := range cross(fillSeqs) {
			key, err := renderKey(tokens, combo, axisIndex)
			if err != nil {
				// Tokens only hold placeholders of their own axis and each
				// filler owns that axis, so render cannot fail here.
				panic(err)
			}
			if !yield(key) {
				return
			}
		}
	}, nil
}

// GenerateKeyList materializes the key sequence. Convenient for small
// selections; prefer GenerateKeys for symbol-by-day-by-month products.
func GenerateKeyList(pathFormat string, sel Selection) ([]string, error) {
	seq, err := GenerateKeys(pathFormat, sel)
	if err != nil {
		return nil, err
	}
	var keys []string
	for key := range seq {
		keys = append(keys, key)
	}
	return keys, nil
}

// renderKey fills every token from the combination's filler for its axis
// and concatenates the results in template order.
func renderKey(tokens []Token, combo []Filler, axisIndex map[Axis]int) (string, error) {
	var key string
	for i := range tokens {
		t := &tokens[i]
		if t.Axis() == AxisNone {
			part, err := t.render(nil)
			if err != nil {
				return "", err
			}
			key += part
			continue
		}
		filler := combo[axisIndex[t.Axis()]]
		fills, err := filler.FillValues(t.Placeholders())
		if err != nil {
			return "", err
		}
		part, err := t.render(fills)
		if err != nil {
			return "", err
		}
		key += part
	}
	return key, nil
}

// cross lazily yields every combination of one filler per axis sequence.
// The yielded slice is reused between iterations. An empty seqs list
// yields a single empty combination, which is what lets a literal-only
// template produce its one key.
func cross(seqs []iter.Seq[Filler]) iter.Seq[[]Filler] {
	return func(yield func([]Filler) bool) {
		combo := make([]Filler, len(seqs))
		var walk func(i int) bool
		walk = func(i int) bool {
			if i == len(seqs) {
				return yield(combo)
			}
			for f := range seqs[i] {
				combo[i] = f
				if !walk(i + 1) {
					return false
				}
			}
			return true
		}
		walk(0)
	}
}
