package transcript

// DefaultExclusions are lower-cased words the corrector never rewrites even
// when a roster name is close: everyday words, football vocabulary, common
// first names and words the recogniser regularly produces in place of
// ordinary speech.
var DefaultExclusions = []string{
	// Everyday words that are also surnames.
	"target", "dan", "davies", "will", "young", "long", "ward", "allen",
	"paul", "mark", "jones", "parker", "walker", "kennedy", "martin",

	// First names that appear alone in commentary.
	"alex", "jack", "joe", "tom", "nick", "mike", "john", "james", "ryan",
	"adam", "ben", "sam", "matt", "chris", "lee", "tony", "gary", "steven",
	"frank", "henry", "barry", "terry", "wayne", "dean", "carl", "dave",
	"rob", "phil", "gordon", "jose", "diego", "alan", "scott", "kurt",
	"adrian", "pedro", "william", "bia", "kael",

	// Football terms.
	"corner", "cross", "header", "pass", "shot", "goal", "foul", "ball",
	"match", "kick", "play", "side", "team", "half", "free", "throw",
	"card", "yellow", "red", "penalty", "manager", "referee", "striker",
	"keeper", "defender",

	// Frequent false positives.
	"poor", "poured", "punch", "wall", "kale", "kyle", "chile", "marino",
	"falco", "pele", "stamford bridge",
}
