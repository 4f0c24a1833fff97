// Package tokenizer maps per-position class scores produced by the captcha
// model back to text.
//
// The class table is laid out as [E] (end of sequence) first, followed by the
// charset in order, followed by [B] and [P]. Class ids emitted by the model
// index directly into that table.
package tokenizer

import (
	"fmt"
	"math"
	"strings"
)

// Special tokens.
const (
	EOS = "[E]"
	BOS = "[B]"
	PAD = "[P]"
)

// DefaultCharset is the alphabet the bundled model was trained on. Every
// character is a separate class, backslashes included.
const DefaultCharset = `0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ!\"#$%&'()*+,-./:;<=>?@[\\]^_` + "`" + `{|}~`

// Tokenizer holds the immutable class table. It is safe for concurrent use.
type Tokenizer struct {
	itos  []string
	eosID int
}

// New builds a tokenizer over charset.
func New(charset string) *Tokenizer {
	itos := make([]string, 0, len(charset)+3)
	itos = append(itos, EOS)
	for _, r := range charset {
		itos = append(itos, string(r))
	}
	itos = append(itos, BOS, PAD)
	return &Tokenizer{itos: itos, eosID: 0}
}

// NumClasses returns the size of the class table.
func (t *Tokenizer) NumClasses() int { return len(t.itos) }

// Token returns the table entry for id.
func (t *Tokenizer) Token(id int) (string, bool) {
	if id < 0 || id >= len(t.itos) {
		return "", false
	}
	return t.itos[id], true
}

// Decoded is the result of a greedy decode.
type Decoded struct {
	Text string
	// IDs are the class ids kept before the first EOS.
	IDs []int
	// Probs holds the winning probability per kept position, plus the EOS
	// probability when an EOS was emitted.
	Probs []float32
}

// Confidence is the product of the per-position probabilities.
func (d Decoded) Confidence() float32 {
	if len(d.Probs) == 0 {
		return 0
	}
	c := float32(1)
	for _, p := range d.Probs {
		c *= p
	}
	return c
}

// Decode runs greedy decoding over logits laid out row-major as
// [steps][classes]. Each row is softmaxed, the argmax is taken, and decoding
// stops at the first EOS.
func (t *Tokenizer) Decode(logits []float32, steps, classes int) (Decoded, error) {
	if steps <= 0 || classes <= 0 {
		return Decoded{}, fmt.Errorf("invalid logits shape [%d,%d]", steps, classes)
	}
	if len(logits) < steps*classes {
		return Decoded{}, fmt.Errorf("logits length %d shorter than %d*%d", len(logits), steps, classes)
	}
	var (
		sb    strings.Builder
		ids   = make([]int, 0, steps)
		probs = make([]float32, 0, steps)
	)
	for s := 0; s < steps; s++ {
		row := logits[s*classes : (s+1)*classes]
		id, p := argmaxSoftmax(row)
		if id == t.eosID {
			probs = append(probs, p)
			break
		}
		tok, ok := t.Token(id)
		if !ok {
			return Decoded{}, fmt.Errorf("class id %d outside table of %d entries", id, len(t.itos))
		}
		sb.WriteString(tok)
		ids = append(ids, id)
		probs = append(probs, p)
	}
	return Decoded{Text: sb.String(), IDs: ids, Probs: probs}, nil
}

// argmaxSoftmax returns the index of the largest score (first on ties) and
// its softmax probability.
func argmaxSoftmax(row []float32) (int, float32) {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	max := float64(row[best])
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v) - max)
	}
	return best, float32(1 / sum)
}
