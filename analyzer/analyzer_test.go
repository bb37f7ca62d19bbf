package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis/analysistest"
)

func TestAll(t *testing.T) {
	a := New()
	require.NoError(t, a.Flags.Set("checkprivatereturnvalues", "true"))
	analysistest.Run(t, analysistest.TestData(), a, "p", "q")
}

func TestPrivateReturnValuesSkippedByDefault(t *testing.T) {
	result := analysistest.Run(t, analysistest.TestData(), New(), "r")
	for _, r := range result {
		require.NoError(t, r.Err)
		require.Len(t, r.Diagnostics, 1)
	}
}
