package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestScanThreatsPatterns(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		threat  bool
	}{
		{"php open tag", "junk <?php system($_GET['c']); ?>", true},
		{"script with eval", "aaaa <script>eval(payload)</script>", true},
		{"asp delimiters", "<% Response.Write(1) %>", true},
		{"union select", "x' UNION SELECT password FROM users --", true},
		{"sql tautology", "' OR 1=1 --", true},
		{"plain text", "an ordinary document body", false},
		{"script without eval", "<script>render()</script>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := scanThreats([]byte(tt.payload), "t.txt", zap.NewNop())
			if tt.threat {
				assert.Equal(t, findingThreat, f.kind)
				assert.Contains(t, f.reason, "malicious pattern")
			} else {
				assert.Equal(t, findingValid, f.kind)
			}
		})
	}
}

func TestScanThreatsReportsAllMatches(t *testing.T) {
	payload := "<?php eval($x); ?><script>eval(y)</script> union select 1"
	f := scanThreats([]byte(payload), "t.txt", zap.NewNop())
	assert.Equal(t, findingThreat, f.kind)
	assert.Contains(t, f.reason, "php code")
	assert.Contains(t, f.reason, "script eval")
	assert.Contains(t, f.reason, "sql injection")
}

func TestScanThreatsHighEntropyWarnsButAccepts(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	// Uniform byte distribution has exactly 8 bits/byte of entropy.
	payload := bytes.Repeat(allByteValues(), 16)
	f := scanThreats(payload, "blob.bin", log)

	assert.Equal(t, findingValid, f.kind)
	entries := logs.FilterMessage("high entropy payload").All()
	assert.Len(t, entries, 1)
}

func TestShannonEntropy(t *testing.T) {
	assert.Equal(t, 0.0, shannonEntropy(nil))
	assert.Equal(t, 0.0, shannonEntropy(bytes.Repeat([]byte{0x42}, 1024)))
	assert.InDelta(t, 8.0, shannonEntropy(allByteValues()), 0.0001)
	assert.InDelta(t, 1.0, shannonEntropy([]byte{0, 1, 0, 1}), 0.0001)
}

func allByteValues() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
