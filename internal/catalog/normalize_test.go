package catalog

import (
	"reflect"
	"testing"
)

func TestWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"stopwords dropped", "The cat is in the hat", []string{"cat", "hat"}},
		{"punctuation stripped", "Hello, world! How's it going?", []string{"hello", "world", "hows", "it", "going"}},
		{"diacritics folded", "Café  NAÏVE", []string{"cafe", "naive"}},
		{"only stopwords", "a an the", []string{}},
		{"blank", "   ", []string{}},
		{"digits kept", "room 42", []string{"room", "42"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Words(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Words(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFold(t *testing.T) {
	if got := Fold("ÉCOLE"); got != "ecole" {
		t.Fatalf("Fold = %q", got)
	}
	if !IsStopword("am") || IsStopword("cat") {
		t.Fatal("unexpected stopword classification")
	}
}
