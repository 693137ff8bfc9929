package prospect

import (
	"regexp"
	"strings"
)

// Stacks addresses are a two-letter network prefix (SP mainnet, ST testnet)
// followed by 38-39 characters of the c32 alphabet, which excludes I, L, O
// and U. Format validation accepts both networks; network selection happens
// at payout time, not here.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var addressTokenPattern = regexp.MustCompile(`\bS[PT][0-9A-Z]{38,39}\b`)

func ValidAddress(addr string) bool {
	if len(addr) < 40 || len(addr) > 41 {
		return false
	}
	if addr[0] != 'S' || (addr[1] != 'P' && addr[1] != 'T') {
		return false
	}
	for _, c := range addr[2:] {
		if !strings.ContainsRune(c32Alphabet, c) {
			return false
		}
	}
	return true
}

// ExtractAddressCandidates returns address-shaped tokens from a comment body
// in order of appearance. Tokens still need ValidAddress; the pattern is
// looser than the alphabet on purpose so near-misses can be reported back.
func ExtractAddressCandidates(body string) []string {
	return addressTokenPattern.FindAllString(body, -1)
}
