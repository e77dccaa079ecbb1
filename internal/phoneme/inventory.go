package phoneme

// Token is one phoneme symbol. It is either a member of the inventory or a
// single-character fallback for a symbol the inventory does not know.
type Token string

// rule maps a multi-character spelling to its canonical token.
type rule struct {
	spelling string
	token    Token
}

// combined lists the multi-character spellings, longest first. The scan
// tries every 3-rune entry before any 2-rune entry, so the order within a
// length group does not matter.
var combined = []rule{
	// rhotic-coloured vowels and diphthongs
	{"ɪəʳ", "ɪəʳ"},
	{"ʊəʳ", "ʊəʳ"},
	{"eəʳ", "eəʳ"},
	{"eɪʳ", "eɪ"},
	{"ɜ:ʳ", "ɜ:ʳ"},
	{"ɜːʳ", "ɜ:ʳ"},

	// affricates written as two base letters
	{"dʒ", "ʤ"},
	{"tʃ", "ʧ"},

	// diphthongs
	{"eɪ", "eɪ"},
	{"aɪ", "aɪ"},
	{"oʊ", "oʊ"},
	{"ɔɪ", "ɔɪ"},
	{"aʊ", "aʊ"},

	// long vowels, ASCII colon and IPA length mark
	{"i:", "i:"},
	{"u:", "u:"},
	{"ɑ:", "ɑ:"},
	{"ɔ:", "ɔ:"},
	{"iː", "i:"},
	{"uː", "u:"},
	{"ɑː", "ɑ:"},
	{"ɔː", "ɔ:"},
}

// base is the single-rune inventory.
var base = []Token{
	"b", "d", "f", "g", "h", "ʤ", "k", "l", "m", "n", "p", "r", "s", "t",
	"v", "w", "z", "ʒ", "ʃ", "θ", "ð", "ŋ", "j", "æ", "ɛ", "ɪ", "ɒ", "ʊ",
	"ʌ", "ə", "i", "u", "ɔ", "ɑ", "ɜ", "e", "ʧ", "o", "y", "a", "x", "c",
}

// zeroWidth are stress and separator marks consumed without emitting a token.
var zeroWidth = map[rune]bool{
	'\'': true,
	'ˈ':  true,
	'ˌ':  true,
}

// Inventory returns every canonical token the tokenizer can emit without
// falling back, in table order without duplicates.
func Inventory() []Token {
	seen := make(map[Token]bool, len(base)+len(combined))
	var out []Token
	for _, r := range combined {
		if !seen[r.token] {
			seen[r.token] = true
			out = append(out, r.token)
		}
	}
	for _, t := range base {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// table is the compiled lookup form of combined and base.
type table struct {
	byLen  [4]map[string]Token
	maxLen int
}

func compile() *table {
	t := &table{}
	for i := range t.byLen {
		t.byLen[i] = make(map[string]Token)
	}
	for _, r := range combined {
		n := len([]rune(r.spelling))
		t.byLen[n][r.spelling] = r.token
		if n > t.maxLen {
			t.maxLen = n
		}
	}
	for _, b := range base {
		t.byLen[1][string(b)] = b
	}
	if t.maxLen == 0 {
		t.maxLen = 1
	}
	return t
}

// match returns the longest table entry starting at runes[i] and its length
// in runes. n is 0 when nothing matches.
func (t *table) match(runes []rune, i int) (tok Token, n int) {
	for l := t.maxLen; l >= 1; l-- {
		if i+l > len(runes) {
			continue
		}
		if tok, ok := t.byLen[l][string(runes[i:i+l])]; ok {
			return tok, l
		}
	}
	return "", 0
}
