package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SITES_FILE", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestSimulate_JSONLines(t *testing.T) {
	out := runCLI(t, "simulate", "--ticks", "3", "--seed", "11", "--format", "json")

	kinds := map[string]int{}
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var rec record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), sc.Text())
		kinds[rec.Kind]++
		if rec.Kind == "log" {
			require.NotNil(t, rec.Log)
			assert.GreaterOrEqual(t, rec.Log.AQI, 0.0)
		}
	}
	assert.Equal(t, 9, kinds["log"])
	assert.Equal(t, 3, kinds["ranking"])
}

func TestSimulate_Table(t *testing.T) {
	out := runCLI(t, "simulate", "--ticks", "2", "--seed", "11", "--format", "table")

	assert.Contains(t, out, "TICK")
	assert.Contains(t, out, "RANK")
	// two ticks of three sites plus three ranking rows
	mentions := strings.Count(out, "Site_Alpha") + strings.Count(out, "Site_Beta") + strings.Count(out, "Site_Gamma")
	assert.Equal(t, 9, mentions)
}

func TestSimulate_RejectsBadFlags(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"simulate", "--ticks", "0"})
	assert.Error(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"simulate", "--ticks", "1", "--format", "xml"})
	assert.Error(t, rootCmd.Execute())
}
