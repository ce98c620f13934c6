package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const phraseLength = 12

var phraseWords = []string{
	"abandon", "ability", "able", "about", "above", "absent", "absorb", "abstract",
	"absurd", "abuse", "access", "accident", "account", "accuse", "achieve", "acid",
	"acoustic", "acquire", "across", "act", "action", "actor", "actress", "actual",
	"adapt", "add", "addict", "address", "adjust", "admit", "adult", "advance",
	"advice", "aerobic", "affair", "afford", "afraid", "again", "against", "age",
	"agent", "agree", "ahead", "aim", "air", "airport", "aisle", "alarm",
	"album", "alcohol", "alert", "alien", "all", "alley", "allow", "almost",
	"alone", "alpha", "already", "also", "alter", "always", "amateur", "amazing",
	"among", "amount", "amused", "analyst", "anchor", "ancient", "anger", "angle",
	"angry", "animal", "ankle", "announce", "annual", "another", "answer", "antenna",
	"antique", "anxiety", "any", "apart", "apology", "appear", "apple", "approve",
	"april", "arch", "arctic", "area", "arena", "argue", "arm", "armed",
	"armor", "army", "around", "arrange", "arrest", "arrive", "arrow", "art",
	"article", "artist", "artwork", "ask", "aspect", "assault", "asset", "assist",
	"assume", "asthma", "athlete", "atom", "attack", "attend", "attitude", "attract",
	"auction", "audit", "august", "aunt", "author", "auto", "autumn", "average",
	"avocado", "avoid", "awake", "aware", "away", "awesome", "awful", "awkward",
}

// PhraseGenerator produces recovery phrases.
type PhraseGenerator func() (string, error)

// RandomPhrase draws phraseLength words with replacement from the word list.
func RandomPhrase() (string, error) {
	n := big.NewInt(int64(len(phraseWords)))
	words := make([]string, phraseLength)
	for i := range words {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("draw phrase word: %w", err)
		}
		words[i] = phraseWords[idx.Int64()]
	}
	return strings.Join(words, " "), nil
}

// randomHex returns size random bytes hex encoded.
func randomHex(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
