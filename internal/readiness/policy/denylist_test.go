package policy_test

import (
	"testing"

	"github.com/project-atlas/readiness/internal/readiness/policy"
	"github.com/stretchr/testify/require"
)

func TestDenylistCheck(t *testing.T) {
	t.Parallel()
	dl := policy.NewDenylist()

	t.Run("accepts computed-only payloads", func(t *testing.T) {
		err := dl.Check(map[string]any{
			"sleep":      88.5,
			"hrv":        61.2,
			"activity":   74.0,
			"spo2_score": 97.1,
		})
		require.NoError(t, err)
	})

	t.Run("rejects exact denied names", func(t *testing.T) {
		for _, key := range []string{"samples", "series", "ecg", "raw_oxygen"} {
			err := dl.Check(map[string]any{key: []float64{1, 2, 3}})
			require.Error(t, err, key)
		}
	})

	t.Run("rejects substring variants", func(t *testing.T) {
		for _, key := range []string{"ecg_samples", "raw_ecg", "hrSeries", "heart_Samples"} {
			err := dl.Check(map[string]any{"sleep": 80.0, key: "blob"})

			var rejected *policy.RejectedKeyError
			require.ErrorAs(t, err, &rejected, key)
			require.Equal(t, key, rejected.Key)
		}
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		err := dl.Check(map[string]any{"ECG_Waveform": "blob"})

		var rejected *policy.RejectedKeyError
		require.ErrorAs(t, err, &rejected)
		require.Equal(t, "ecg", rejected.Matched)
	})

	t.Run("extra substrings extend the list", func(t *testing.T) {
		custom := policy.NewDenylist("ppg", " Waveform ")

		require.Error(t, custom.Check(map[string]any{"ppg_window": 1}))
		require.Error(t, custom.Check(map[string]any{"spo2_waveform": 1}))
		require.NoError(t, custom.Check(map[string]any{"sleep": 80.0}))
	})

	t.Run("empty payload passes", func(t *testing.T) {
		require.NoError(t, dl.Check(nil))
		require.NoError(t, dl.Check(map[string]any{}))
	})
}
