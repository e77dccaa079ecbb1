package pronounce

// arpabet maps stress-stripped ARPABET symbols to IPA-like spellings the
// phoneme tokenizer understands.
var arpabet = map[string]string{
	"AA": "ɑ",
	"AE": "æ",
	"AH": "ʌ",
	"AO": "ɔ",
	"AW": "aʊ",
	"AY": "aɪ",
	"B":  "b",
	"CH": "ʧ",
	"D":  "d",
	"DH": "ð",
	"EH": "ɛ",
	"ER": "ər",
	"EY": "eɪ",
	"F":  "f",
	"G":  "g",
	"HH": "h",
	"IH": "ɪ",
	"IY": "i",
	"JH": "ʤ",
	"K":  "k",
	"L":  "l",
	"M":  "m",
	"N":  "n",
	"NG": "ŋ",
	"OW": "oʊ",
	"OY": "ɔɪ",
	"P":  "p",
	"R":  "r",
	"S":  "s",
	"SH": "ʃ",
	"T":  "t",
	"TH": "θ",
	"UH": "ʊ",
	"UW": "u",
	"V":  "v",
	"W":  "w",
	"Y":  "j",
	"Z":  "z",
	"ZH": "ʒ",
}

// unstressedSchwa is the spelling of AH0.
const unstressedSchwa = "ə"

const (
	primaryStress   = "ˈ"
	secondaryStress = "ˌ"
)
