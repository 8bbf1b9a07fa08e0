package embedding

import (
	"reflect"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("Hello, world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths = %d/%d/%d, want 10", len(ids), len(attn), len(types))
	}
	if ids[0] != clsToken {
		t.Errorf("expected CLS %d, got %d", clsToken, ids[0])
	}
	// [CLS] hello , world [SEP]
	if ids[4] != sepToken {
		t.Errorf("expected SEP at 4, got %v", ids)
	}
	for i := 1; i < 4; i++ {
		if ids[i] < firstWordID || ids[i] >= vocabSize {
			t.Errorf("token %d = %d outside the word id range", i, ids[i])
		}
	}
	if attn[4] != 1 || attn[5] != 0 {
		t.Errorf("attention mask = %v", attn)
	}
}

func TestSimpleTokenizer_truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("a b c d e f g h", 4)
	if ids[0] != clsToken || ids[3] != sepToken {
		t.Errorf("ids = %v, want CLS a b SEP", ids)
	}
	for i, a := range attn {
		if a != 1 {
			t.Errorf("attention[%d] = 0 for a full sequence", i)
		}
	}
}

func TestSimpleTokenizer_caseInsensitive(t *testing.T) {
	tok := &SimpleTokenizer{}
	a, _, _ := tok.Tokenize("Vector Store", 8)
	b, _, _ := tok.Tokenize("vector store", 8)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("token ids differ by case: %v vs %v", a, b)
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"  a  b  c  ", []string{"a", "b", "c"}},
		{"Hello, World!", []string{"hello", ",", "world", "!"}},
		{"tab\tand\nnewline", []string{"tab", "and", "newline"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := SplitWords(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitWords(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == HashString("abd") {
		t.Error("different strings should hash differently")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	if HashString("") < 0 {
		t.Error("hash should be non-negative")
	}
}
