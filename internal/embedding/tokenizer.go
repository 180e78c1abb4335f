package embedding

// modelTokenizer produces token IDs for BERT-style models
// (input_ids, attention_mask, token_type_ids).
type modelTokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// hashTokenizer is a word-split tokenizer with hash-based token IDs. It is
// not a real vocabulary but is deterministic, which is all the embedding
// contract requires of the fallback path.
type hashTokenizer struct{}

func (hashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = 101 // [CLS]
	attentionMask[0] = 1

	pos := 1
	word := make([]rune, 0, 16)
	emit := func() {
		if len(word) == 0 || pos >= maxTokens-1 {
			word = word[:0]
			return
		}
		inputIDs[pos] = int64(hashWord(string(word)) % 30000)
		attentionMask[pos] = 1
		pos++
		word = word[:0]
	}
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			emit()
			continue
		}
		word = append(word, r)
	}
	emit()
	if pos < maxTokens {
		inputIDs[pos] = 102 // [SEP]
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// hashWord returns a deterministic non-negative hash for a word.
func hashWord(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
