package pipeline

import (
	"math"
	"strings"

	"go.uber.org/zap"
)

// threatPattern names a substring match over the whole payload.
type threatPattern struct {
	name    string
	needles []string // all needles must be present
}

var threatPatterns = []threatPattern{
	{name: "php code", needles: []string{"<?php"}},
	{name: "php short tag", needles: []string{"<?="}},
	{name: "script eval", needles: []string{"<script", "eval("}},
	{name: "asp code", needles: []string{"<%"}},
	{name: "sql injection", needles: []string{"union select"}},
	{name: "sql tautology", needles: []string{"1=1"}},
}

// entropyWarnThreshold is bits per byte. Compressed media legitimately sits
// above it, so crossing the line is advisory telemetry, never a rejection.
const entropyWarnThreshold = 7.5

// scanThreats runs the policy-gated textual and statistical analyses over the
// entire payload. A pattern match is a hard reject; high entropy only warns.
func scanThreats(data []byte, name string, log *zap.Logger) finding {
	lower := strings.ToLower(string(data))

	var matched []string
	for _, p := range threatPatterns {
		hit := true
		for _, n := range p.needles {
			if !strings.Contains(lower, n) {
				hit = false
				break
			}
		}
		if hit {
			matched = append(matched, p.name)
		}
	}
	if len(matched) > 0 {
		return finding{
			kind:   findingThreat,
			reason: "malicious pattern detected: " + strings.Join(matched, ", "),
		}
	}

	if e := shannonEntropy(data); e > entropyWarnThreshold {
		log.Warn("high entropy payload",
			zap.String("file", name),
			zap.Float64("entropy", e),
			zap.Int("size", len(data)))
	}

	return finding{kind: findingValid}
}

// shannonEntropy estimates byte-level entropy in bits per byte.
func shannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	total := float64(len(data))
	entropy := 0.0
	for _, n := range freq {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
