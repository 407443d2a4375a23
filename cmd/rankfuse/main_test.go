package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func scenarioFiles(t *testing.T) []string {
	dir := t.TempDir()
	lexical := writeFile(t, dir, "lexical.json",
		`{"items":[{"key":"a.a","weight":100},{"key":"a.b","weight":200},{"key":"a.c","weight":800}]}`)
	vector := writeFile(t, dir, "vector.json",
		`{"source":"vector","items":[{"key":"b.a","weight":0.1},{"key":"b.b","weight":0.12},{"key":"a.c","weight":0.3}]}`)
	return []string{lexical, vector}
}

func TestFuseCommandJSON(t *testing.T) {
	files := scenarioFiles(t)
	out, err := runCLI(t, append([]string{"fuse", "-o", "json"}, files...)...)
	require.NoError(t, err)

	var got struct {
		Items []struct {
			Key     string   `json:"key"`
			Weight  float64  `json:"weight"`
			Sources []string `json:"sources"`
		} `json:"items"`
		Lists []struct {
			Source string `json:"source"`
		} `json:"lists"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	keys := make([]string, len(got.Items))
	for i, it := range got.Items {
		keys[i] = it.Key
	}
	assert.Equal(t, []string{"a.c", "a.b", "b.b", "a.a", "b.a"}, keys)
	assert.Equal(t, []string{"lexical", "vector"}, got.Items[0].Sources)
	require.Len(t, got.Lists, 2)
	assert.Equal(t, "lexical", got.Lists[0].Source)
}

func TestFuseCommandText(t *testing.T) {
	files := scenarioFiles(t)
	out, err := runCLI(t, append([]string{"fuse", "--limit", "2"}, files...)...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "RANK"))
	assert.Contains(t, lines[1], "a.c")
	assert.Contains(t, lines[1], "1.000000")
	assert.Contains(t, lines[1], "lexical,vector")
	assert.Contains(t, lines[2], "a.b")
}

func TestFuseCommandWeightedSum(t *testing.T) {
	files := scenarioFiles(t)
	out, err := runCLI(t, append([]string{"fuse", "-o", "json", "--conflation", "weighted-sum",
		"--weights", "lexical=0,vector=1"}, files...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"key": "a.c"`)

	_, err = runCLI(t, append([]string{"fuse", "--conflation", "weighted-sum"}, files...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_weights")

	_, err = runCLI(t, append([]string{"fuse", "--conflation", "weighted-sum", "--weights", "lexical=heavy"}, files...)...)
	require.Error(t, err)

	positional, err := runCLI(t, append([]string{"fuse", "-o", "json", "--conflation", "weighted-sum",
		"--weight-list", "0,1"}, files...)...)
	require.NoError(t, err)
	assert.JSONEq(t, out, positional)
}

func TestFuseCommandQdrant(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "dense.json", `{"result":[{"id":1,"score":0.9},{"id":2,"score":0.5}]}`)
	b := writeFile(t, dir, "sparse.json", `{"result":[{"id":2,"score":12.0},{"id":3,"score":3.0}]}`)

	out, err := runCLI(t, "fuse", "--format", "qdrant", "--conflation", "sum", a, b)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	first, second := strings.Fields(lines[1]), strings.Fields(lines[2])
	assert.Equal(t, []string{"1", "1", "1.000000", "dense"}, first)
	assert.Equal(t, []string{"2", "2", "1.000000", "dense,sparse"}, second)
}

func TestFuseCommandErrors(t *testing.T) {
	files := scenarioFiles(t)

	_, err := runCLI(t, "fuse")
	require.Error(t, err)

	_, err = runCLI(t, append([]string{"fuse", "--format", "csv"}, files...)...)
	require.Error(t, err)

	_, err = runCLI(t, append([]string{"fuse", "-o", "yaml"}, files...)...)
	require.Error(t, err)

	_, err = runCLI(t, "fuse", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	dir := t.TempDir()
	flat := writeFile(t, dir, "flat.json", `{"items":[{"key":"x","weight":2},{"key":"y","weight":2}]}`)
	_, err = runCLI(t, "fuse", "--degenerate", "error", flat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flat")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rankfuse dev")
}
