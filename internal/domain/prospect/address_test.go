package prospect

import (
	"strings"
	"testing"
)

const validTail39 = "2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

func TestValidAddress(t *testing.T) {
	cases := []struct {
		name string
		addr string
		want bool
	}{
		{"mainnet 39 chars", "SP" + validTail39, true},
		{"testnet 39 chars", "ST" + validTail39, true},
		{"38 chars", "SP" + validTail39[:38], true},
		{"wrong prefix", "SX" + validTail39, false},
		{"lowercase", "sp" + strings.ToLower(validTail39), false},
		{"contains O", "SP" + "O" + validTail39[1:], false},
		{"contains I", "SP" + "I" + validTail39[1:], false},
		{"contains L", "SP" + "L" + validTail39[1:], false},
		{"contains U", "SP" + "U" + validTail39[1:], false},
		{"too short", "SP" + validTail39[:30], false},
		{"too long", "SP" + validTail39 + "9", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidAddress(tc.addr); got != tc.want {
				t.Fatalf("ValidAddress(%q) = %v, want %v", tc.addr, got, tc.want)
			}
		})
	}
}

func TestExtractAddressCandidates(t *testing.T) {
	first := "ST" + validTail39
	second := "SP" + validTail39
	body := "here you go: " + first + " (or mainnet " + second + ")"

	got := ExtractAddressCandidates(body)
	if len(got) != 2 {
		t.Fatalf("ExtractAddressCandidates() = %#v, want 2 tokens", got)
	}
	if got[0] != first || got[1] != second {
		t.Fatalf("ExtractAddressCandidates() order = %#v", got)
	}
}

func TestExtractAddressCandidatesNoMatch(t *testing.T) {
	if got := ExtractAddressCandidates("thanks, I'll send it later"); len(got) != 0 {
		t.Fatalf("ExtractAddressCandidates() = %#v, want none", got)
	}
}
