package helpers

import "unicode/utf8"

// Suggests a valid word for a misspelled one. Only a single deleted, inserted,
// or replaced character is detected, which covers most flag typos.
type TypoDetector struct {
	oneCharTypos map[string]string
}

func MakeTypoDetector(valid []string) TypoDetector {
	detector := TypoDetector{oneCharTypos: make(map[string]string)}

	// Add all combinations of each valid word with one character missing
	for _, correct := range valid {
		if len(correct) > 3 {
			detector.oneCharTypos[correct] = correct
			for i, ch := range correct {
				detector.oneCharTypos[correct[:i]+correct[i+utf8.RuneLen(ch):]] = correct
			}
		}
	}

	return detector
}

func (detector TypoDetector) MaybeCorrectTypo(typo string) (string, bool) {
	// A missing character
	if corrected, ok := detector.oneCharTypos[typo]; ok && corrected != typo {
		return corrected, true
	}

	// An extra or a replaced character
	for i, ch := range typo {
		if corrected, ok := detector.oneCharTypos[typo[:i]+typo[i+utf8.RuneLen(ch):]]; ok && corrected != typo {
			return corrected, true
		}
	}

	return "", false
}
