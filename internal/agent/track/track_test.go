package track

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenTrackerRecommendation(t *testing.T) {
	tr := NewTokenTracker(100)
	require.Equal(t, RecommendNormal, tr.Recommend())

	tr.Add(72)
	require.Equal(t, RecommendCaution, tr.Recommend())

	tr.Add(15)
	require.Equal(t, RecommendCompact, tr.Recommend())

	tr.Add(10)
	require.Equal(t, RecommendTerminate, tr.Recommend())
	require.Equal(t, int64(3), tr.Remaining())
}

func TestValidationTrackerDetectsDoomLoop(t *testing.T) {
	vt := NewValidationTracker(3)
	fp := Fingerprint("shell.execute", `{"command":"ls"}`)

	require.False(t, vt.IsDoomLooping())
	vt.Record(fp)
	vt.Record(fp)
	require.False(t, vt.IsDoomLooping())
	vt.Record(fp)
	require.True(t, vt.IsDoomLooping())

	vt.Reset()
	require.False(t, vt.IsDoomLooping())
}

func TestValidationTrackerNoFalsePositiveOnVariedCalls(t *testing.T) {
	vt := NewValidationTracker(3)
	vt.Record(Fingerprint("shell.execute", `{"command":"ls"}`))
	vt.Record(Fingerprint("file.read", `{"path":"a.go"}`))
	vt.Record(Fingerprint("shell.execute", `{"command":"pwd"}`))
	require.False(t, vt.IsDoomLooping())
}
