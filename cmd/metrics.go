package cmd

import (
	"regexp"
	"strings"
)

// Metrics compares a transcription with its ground truth after both are
// lower-cased and whitespace-collapsed.
type Metrics struct {
	CharacterSimilarity   float64 `yaml:"character_similarity"`
	WordSimilarity        float64 `yaml:"word_similarity"`
	WordAccuracy          float64 `yaml:"word_accuracy"`
	WordErrorRate         float64 `yaml:"word_error_rate"`
	TotalWordsOriginal    int     `yaml:"total_words_original"`
	TotalWordsTranscribed int     `yaml:"total_words_transcribed"`
	CorrectWords          int     `yaml:"correct_words"`
	Substitutions         int     `yaml:"substitutions"`
	Deletions             int     `yaml:"deletions"`
	Insertions            int     `yaml:"insertions"`
}

var whitespace = regexp.MustCompile(`\s+`)

func normalizeText(text string) string {
	return strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(text), " "))
}

// editDistance is the Levenshtein distance between two token sequences.
func editDistance[T comparable](a, b []T) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// levenshteinDistance counts rune edits, so accented and non-Latin text is
// not penalised per byte.
func levenshteinDistance(s1, s2 string) int {
	return editDistance([]rune(s1), []rune(s2))
}

func calculateSimilarity(s1, s2 string) float64 {
	maxLen := max(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(s1, s2))/float64(maxLen)
}

// calculateWordLevelMetrics aligns the word sequences and counts each kind
// of edit on one minimal alignment.
func calculateWordLevelMetrics(orig, trans []string) (correct, substitutions, deletions, insertions int) {
	m, n := len(orig), len(trans)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
		dp[i][0] = i
	}
	for j := 0; j <= n; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if orig[i-1] == trans[j-1] {
				dp[i][j] = dp[i-1][j-1]
			} else {
				dp[i][j] = 1 + min(dp[i-1][j], dp[i][j-1], dp[i-1][j-1])
			}
		}
	}

	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && orig[i-1] == trans[j-1]:
			correct++
			i--
			j--
		case i > 0 && j > 0 && dp[i][j] == dp[i-1][j-1]+1:
			substitutions++
			i--
			j--
		case i > 0 && dp[i][j] == dp[i-1][j]+1:
			deletions++
			i--
		default:
			insertions++
			j--
		}
	}
	return correct, substitutions, deletions, insertions
}

func CalculateAccuracyMetrics(original, transcribed string) Metrics {
	origNorm := normalizeText(original)
	transNorm := normalizeText(transcribed)
	origWords := strings.Fields(origNorm)
	transWords := strings.Fields(transNorm)

	correct, subs, dels, ins := calculateWordLevelMetrics(origWords, transWords)
	wer := 0.0
	if len(origWords) > 0 {
		wer = float64(subs+dels+ins) / float64(len(origWords))
	} else if len(transWords) > 0 {
		wer = 1.0
	}

	return Metrics{
		CharacterSimilarity:   calculateSimilarity(origNorm, transNorm),
		WordSimilarity:        1.0 - safeRatio(editDistance(origWords, transWords), max(len(origWords), len(transWords))),
		WordAccuracy:          1.0 - wer,
		WordErrorRate:         wer,
		TotalWordsOriginal:    len(origWords),
		TotalWordsTranscribed: len(transWords),
		CorrectWords:          correct,
		Substitutions:         subs,
		Deletions:             dels,
		Insertions:            ins,
	}
}

func safeRatio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
