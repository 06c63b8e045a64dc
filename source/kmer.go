package source

import (
	"fmt"
	"math"
	"strings"
)

// Alphabet maps sequence letters to k-mer digits.
type Alphabet struct {
	name    string
	letters string
	digit   [256]int8
	kmax    int
}

func newAlphabet(name, letters string) *Alphabet {
	a := &Alphabet{name: name, letters: letters}
	for i := range a.digit {
		a.digit[i] = -1
	}
	for i := 0; i < len(letters); i++ {
		a.digit[letters[i]] = int8(i)
		a.digit[strings.ToLower(letters[i:i+1])[0]] = int8(i)
	}
	// Largest k whose keys n^k-1 fit in a uint64.
	n := float64(len(letters))
	a.kmax = int(math.Floor(64 / math.Log2(n)))
	for pow(len(letters), a.kmax) == 0 {
		a.kmax--
	}
	return a
}

// pow returns n^k, or 0 on uint64 overflow.
func pow(n, k int) uint64 {
	r := uint64(1)
	for i := 0; i < k; i++ {
		if r > math.MaxUint64/uint64(n) {
			return 0
		}
		r *= uint64(n)
	}
	return r
}

var (
	// Protein is the 20 standard amino acids.
	Protein = newAlphabet("protein", "ACDEFGHIKLMNPQRSTVWY")
	// Nucleotide is the four DNA bases.
	Nucleotide = newAlphabet("nucleotide", "ACGT")
)

// AlphabetByName resolves "protein"/"faa" and "nucleotide"/"dna"/"ffn".
func AlphabetByName(name string) (*Alphabet, error) {
	switch strings.ToLower(name) {
	case "", "protein", "aa", "faa":
		return Protein, nil
	case "nucleotide", "dna", "na", "ffn", "fna":
		return Nucleotide, nil
	}
	return nil, fmt.Errorf("unknown alphabet %q", name)
}

func (a *Alphabet) Name() string { return a.name }

// Size returns the number of letters.
func (a *Alphabet) Size() int { return len(a.letters) }

// KMax returns the largest k whose keys fit in 64 bits.
func (a *Alphabet) KMax() int { return a.kmax }

// Key encodes a k-mer, reporting false if it holds a foreign letter.
func (a *Alphabet) Key(kmer []byte) (uint64, bool) {
	n := uint64(len(a.letters))
	var key uint64
	for _, c := range kmer {
		d := a.digit[c]
		if d < 0 {
			return 0, false
		}
		key = key*n + uint64(d)
	}
	return key, true
}

// Decode renders key as a k-mer of length k.
func (a *Alphabet) Decode(key uint64, k int) string {
	n := uint64(len(a.letters))
	b := make([]byte, k)
	for i := k - 1; i >= 0; i-- {
		b[i] = a.letters[key%n]
		key /= n
	}
	return string(b)
}

// Count tallies the k-mers of seq, skipping windows over foreign letters,
// and returns the number of windows counted.
func (a *Alphabet) Count(seq []byte, k int, into map[uint64]float64) int {
	if k <= 0 {
		return 0
	}
	n := uint64(len(a.letters))
	mod := pow(len(a.letters), k-1)
	var key uint64
	valid, total := 0, 0
	for _, c := range seq {
		d := a.digit[c]
		if d < 0 {
			valid, key = 0, 0
			continue
		}
		if valid == k {
			key %= mod
		} else {
			valid++
		}
		key = key*n + uint64(d)
		if valid == k {
			into[key]++
			total++
		}
	}
	return total
}
