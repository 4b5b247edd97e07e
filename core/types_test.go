package core

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestTokenUsageTotal(t *testing.T) {
	u := TokenUsage{InputTokens: 12, OutputTokens: 6, CacheReadInputTokens: 100}
	if got := u.Total(); got != 18 {
		t.Errorf("Total() = %d, want 18", got)
	}
}

func TestTokenUsageOmitsEmptyCacheCounts(t *testing.T) {
	data, err := json.Marshal(TokenUsage{InputTokens: 3, OutputTokens: 4})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if got, want := string(data), `{"input_tokens":3,"output_tokens":4}`; got != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}
