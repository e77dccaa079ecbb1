package alignment

// Substitution pairs the hypothesis text that was produced in place of the
// reference text it should have been.
type Substitution struct {
	Removed  string `json:"removed"`
	Replaced string `json:"replaced"`
}

// Errors lists the literal edits of a character alignment.
type Errors struct {
	Insertions    []string
	Deletions     []string
	Substitutions []Substitution
}

// Project turns character chunks into literal characters. Insertions and
// deletions are listed one character per entry; each substitution chunk
// becomes one pair of slices. reference and hypothesis must be the strings
// the chunks were computed over.
func Project(chunks []Chunk, reference, hypothesis string) Errors {
	ref, hyp := []rune(reference), []rune(hypothesis)
	out := Errors{
		Insertions:    []string{},
		Deletions:     []string{},
		Substitutions: []Substitution{},
	}
	for _, c := range chunks {
		switch c.Kind {
		case Insert:
			for _, r := range hyp[c.HypStart:c.HypEnd] {
				out.Insertions = append(out.Insertions, string(r))
			}
		case Delete:
			for _, r := range ref[c.RefStart:c.RefEnd] {
				out.Deletions = append(out.Deletions, string(r))
			}
		case Substitute:
			out.Substitutions = append(out.Substitutions, Substitution{
				Removed:  string(hyp[c.HypStart:c.HypEnd]),
				Replaced: string(ref[c.RefStart:c.RefEnd]),
			})
		}
	}
	return out
}
