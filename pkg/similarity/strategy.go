package similarity

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// Strategy maps a code unit to a grouping key. Units with equal keys are
// reported as duplicates. The set of strategies is closed.
type Strategy interface {
	Name() StrategyName
	Key(u CodeUnit) (string, error)

	sealed()
}

// StrategyFor returns the strategy registered under name. Unknown names
// fall back to Exact. canon supplies canonical forms to the AST strategy
// and may be shared with other callers in the same run.
func StrategyFor(name StrategyName, canon *Canonicalizer) Strategy {
	switch name {
	case StrategyAST:
		return &ASTCanonical{canon: canon}
	default:
		return Exact{}
	}
}

// Exact keys units by their whitespace-normalized source text.
type Exact struct{}

// Name implements Strategy.
func (Exact) Name() StrategyName { return StrategyExact }

// Key implements Strategy.
func (Exact) Key(u CodeUnit) (string, error) {
	return hashKey(NormalizeText(u.Source)), nil
}

func (Exact) sealed() {}

// ASTCanonical keys units by their canonicalized syntax tree, so renamed
// locals, changed literals and reformatting do not change the key.
type ASTCanonical struct {
	canon *Canonicalizer
}

// Name implements Strategy.
func (*ASTCanonical) Name() StrategyName { return StrategyAST }

// Key implements Strategy.
func (s *ASTCanonical) Key(u CodeUnit) (string, error) {
	return hashKey(s.canon.Canonicalize(u.Source).Dump), nil
}

func (*ASTCanonical) sealed() {}

// hashKey returns the hex BLAKE3-256 digest of s. Invalid UTF-8 is
// replaced with U+FFFD first so every input hashes.
func hashKey(s string) string {
	sum := blake3.Sum256([]byte(strings.ToValidUTF8(s, "\uFFFD")))
	return hex.EncodeToString(sum[:])
}
