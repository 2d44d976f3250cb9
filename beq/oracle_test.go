package beq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeSellability(t *testing.T) {
	ok := &Verdict{Status: SellabilityOK, Confidence: 0.8, Reasons: []string{"liquidity_ok"}}
	uncertain := &Verdict{Status: SellabilityUncertain, Confidence: 0.5, Reasons: []string{"risk_level:2"}}
	fail := &Verdict{Status: SellabilityFail, Confidence: 0.95, Reasons: []string{"honeypot"}}

	testCases := map[string]struct {
		verdicts       []*Verdict
		expectedStatus SellabilityStatus
		expectedConf   float64
		expectedReason []string
	}{
		"worse status wins": {
			verdicts:       []*Verdict{ok, fail},
			expectedStatus: SellabilityFail,
			expectedConf:   0.95,
			expectedReason: []string{"liquidity_ok", "honeypot"},
		},
		"uncertain beats ok": {
			verdicts:       []*Verdict{uncertain, ok},
			expectedStatus: SellabilityUncertain,
			expectedConf:   0.5,
			expectedReason: []string{"risk_level:2", "liquidity_ok"},
		},
		"equal status keeps higher confidence": {
			verdicts: []*Verdict{
				{Status: SellabilityOK, Confidence: 0.6, Reasons: []string{"first"}},
				{Status: SellabilityOK, Confidence: 0.9, Reasons: []string{"second"}},
			},
			expectedStatus: SellabilityOK,
			expectedConf:   0.9,
			expectedReason: []string{"first", "second"},
		},
		"nil verdicts are skipped": {
			verdicts:       []*Verdict{nil, ok, nil},
			expectedStatus: SellabilityOK,
			expectedConf:   0.8,
			expectedReason: []string{"liquidity_ok"},
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			merged := MergeSellability(testCase.verdicts...)
			require.NotNil(t, merged)
			require.Equal(t, testCase.expectedStatus, merged.Status)
			require.Equal(t, testCase.expectedConf, merged.Confidence)
			require.Equal(t, testCase.expectedReason, merged.Reasons)
		})
	}
}

func TestMergeSellabilityAllAbstain(t *testing.T) {
	require.Nil(t, MergeSellability())
	require.Nil(t, MergeSellability(nil, nil))
}

func TestMergeSellabilityDoesNotMutateInputs(t *testing.T) {
	a := &Verdict{Status: SellabilityOK, Confidence: 0.8, Reasons: []string{"a"}}
	b := &Verdict{Status: SellabilityFail, Confidence: 0.9, Reasons: []string{"b"}}

	merged := MergeSellability(a, b)
	require.Equal(t, []string{"a", "b"}, merged.Reasons)
	require.Equal(t, []string{"a"}, a.Reasons)
	require.Equal(t, []string{"b"}, b.Reasons)
}
