package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttributes(t *testing.T) {
	attrs, err := parseAttributes(
		[]string{"name=Device-42", "a_terminations.device=sw1", "url=https://example.com/a?b=c"},
		`{"serial": "SN12345", "a_terminations": {"name": "eth0"}}`,
	)
	require.NoError(t, err)
	assert.Equal(t, "Device-42", attrs["name"])
	assert.Equal(t, "SN12345", attrs["serial"])
	assert.Equal(t, "https://example.com/a?b=c", attrs["url"])
	assert.Equal(t, map[string]any{"name": "eth0", "device": "sw1"}, attrs["a_terminations"])

	path := filepath.Join(t.TempDir(), "attrs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "R1"}`), 0o600))
	attrs, err = parseAttributes(nil, "@"+path)
	require.NoError(t, err)
	assert.Equal(t, "R1", attrs["name"])

	_, err = parseAttributes([]string{"novalue"}, "")
	assert.Error(t, err)
	_, err = parseAttributes(nil, "{")
	assert.Error(t, err)
}

func TestListings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listLabels(&buf))
	assert.Contains(t, buf.String(), "62x100")
	assert.Contains(t, buf.String(), "696x1109")

	buf.Reset()
	require.NoError(t, listModels(&buf))
	assert.Contains(t, buf.String(), "QL-710W")
	assert.Contains(t, buf.String(), "escpos")
}
