package vibe

// Curated keyword sets for the local heuristic. Membership is checked after
// lowercasing, so everything here is lowercase.

var positiveWords = wordSet(
	"happy", "joy", "joyful", "upbeat", "cheerful", "love", "loving",
	"sunny", "bright", "good", "great", "fun", "smile", "smiling",
	"excited", "celebrate", "celebration", "euphoric", "hopeful",
	"warm", "sweet", "blissful", "uplifting", "positive", "glad",
)

var negativeWords = wordSet(
	"sad", "blue", "down", "cry", "crying", "heartbreak", "heartbroken",
	"lonely", "alone", "melancholy", "melancholic", "gloomy", "dark",
	"depressed", "depressing", "grief", "mourning", "hurt", "pain",
	"bitter", "somber", "tears", "miserable", "bleak", "hopeless",
)

var highEnergyWords = wordSet(
	"energy", "energetic", "party", "hype", "hyped", "pump", "pumped",
	"workout", "gym", "run", "running", "dance", "dancing", "wild",
	"intense", "loud", "banger", "bangers", "rave", "adrenaline",
)

var lowEnergyWords = wordSet(
	"chill", "calm", "relax", "relaxed", "relaxing", "mellow", "sleep",
	"sleepy", "quiet", "soft", "slow", "gentle", "ambient", "soothing",
	"peaceful", "cozy", "lazy", "dreamy", "lofi",
)

var acousticWords = wordSet(
	"acoustic", "unplugged", "folk", "guitar", "piano", "strings",
	// Tokenization splits on punctuation, so hyphenated genre names are
	// stored as their halves ("singer-songwriter" arrives as two tokens).
	"organic", "stripped", "campfire", "singer", "songwriter",
)

var instrumentalWords = wordSet(
	"instrumental", "instrumentals", "orchestral", "orchestra",
	"soundtrack", "score", "classical", "beats", "nolyrics",
)

var angryWords = wordSet(
	"angry", "anger", "rage", "furious", "aggressive", "mad",
	"metal", "scream", "screaming", "fight",
)

var tempoFastWords = wordSet(
	"fast", "quick", "rapid", "speedy", "uptempo", "racing", "sprint",
)

var tempoSlowWords = wordSet(
	"slow", "downtempo", "ballad", "ballads", "leisurely", "unhurried",
)

func wordSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}
