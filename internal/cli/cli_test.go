package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter("table", &buf)
	require.NoError(t, p.Table([]string{"DOC", "SCORE"}, [][]string{{"a.txt", "1.5"}, {"long-name.txt", "0.2"}}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, bytes.Index(lines[0], []byte("SCORE")), bytes.Index(lines[2], []byte("0.2")))
	assert.False(t, p.IsJSON())
}

func TestPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter("json", &buf)
	require.NoError(t, p.JSON(map[string]int{"hits": 3}))
	assert.JSONEq(t, `{"hits":3}`, buf.String())
	assert.True(t, p.IsJSON())
}

func TestRootLoadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("indexer:\n  kgramSize: 3\n"), 0644))

	root, app := NewRoot("test", "test command")
	var k int
	root.AddCommand(&cobra.Command{
		Use: "run",
		RunE: func(cmd *cobra.Command, args []string) error {
			k = app.Config.Indexer.KGramSize
			return nil
		},
	})
	root.SetArgs([]string{"--config", path, "--log-level", "debug", "run"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, 3, k)
	assert.Equal(t, "debug", app.Config.Logging.Level)
}

func TestRootRejectsUnknownOutput(t *testing.T) {
	root, _ := NewRoot("test", "test command")
	root.AddCommand(&cobra.Command{Use: "run", RunE: func(*cobra.Command, []string) error { return nil }})
	root.SetArgs([]string{"-o", "yaml", "run"})
	assert.ErrorContains(t, root.ExecuteContext(context.Background()), "unknown output format")
}
