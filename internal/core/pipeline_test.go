package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/flexgen/internal/table"
)

func writeTable(t *testing.T, path string, tbl *table.Table) string {
	t.Helper()
	require.NoError(t, table.WriteFile(tbl, path))
	return path
}

func writeConfigDir(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestGenerate_WritesResult(t *testing.T) {
	dir := t.TempDir()

	job := Job{
		RunID:         "run-1",
		InputPath:     writeTable(t, filepath.Join(dir, "in.xlsx"), primaryAB()),
		ConfigDir:     writeConfigDir(t, filepath.Join(dir, "folder"), map[string]string{"region.txt": "  EMEA\n"}),
		ReferencePath: filepath.Join(dir, EmptyReferenceName),
		OutputPath:    filepath.Join(dir, OutputName),
		XML:           true,
	}
	require.NoError(t, WriteEmptyReference(job.ReferencePath))

	summary, err := Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Rows: 2, Columns: 3, Configs: 1}, summary)

	got, err := table.ReadFile(job.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, []string{JoinKey, "CONFIG_region", XMLProcessedColumn}, got.Columns)
	assert.Equal(t, []table.Cell{table.Text("A"), table.Text("EMEA"), table.Text("Yes")}, got.Rows[0])
	assert.Equal(t, []table.Cell{table.Text("B"), table.Text("EMEA"), table.Text("Yes")}, got.Rows[1])
}

func TestGenerate_StageErrors(t *testing.T) {
	dir := t.TempDir()
	input := writeTable(t, filepath.Join(dir, "in.xlsx"), primaryAB())
	configDir := writeConfigDir(t, filepath.Join(dir, "folder"), nil)
	emptyRef := filepath.Join(dir, EmptyReferenceName)
	require.NoError(t, WriteEmptyReference(emptyRef))

	corrupt := filepath.Join(dir, "corrupt.xlsx")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a workbook"), 0o644))

	noKey := table.New("NAME")
	noKey.AppendRow(table.Text("x"))
	noKeyPath := writeTable(t, filepath.Join(dir, "nokey.xlsx"), noKey)

	ref := emptyReference()
	ref.AppendRow(table.Text("A"), table.Text("Attr"), table.Text("Prompt"))
	refPath := writeTable(t, filepath.Join(dir, "dff.xlsx"), ref)

	bigConfigDir := writeConfigDir(t, filepath.Join(dir, "big"), map[string]string{
		"big.txt": strings.Repeat("x", 40000),
	})

	tests := []struct {
		name      string
		job       Job
		wantKind  error
		wantStage Stage
	}{
		{
			name:      "missing primary",
			job:       Job{InputPath: filepath.Join(dir, "nope.xlsx"), ConfigDir: configDir, ReferencePath: emptyRef},
			wantKind:  ErrIO,
			wantStage: StageReadPrimary,
		},
		{
			name:      "corrupt primary",
			job:       Job{InputPath: corrupt, ConfigDir: configDir, ReferencePath: emptyRef},
			wantKind:  ErrParse,
			wantStage: StageReadPrimary,
		},
		{
			name:      "missing config directory",
			job:       Job{InputPath: input, ConfigDir: filepath.Join(dir, "missing"), ReferencePath: emptyRef},
			wantKind:  ErrIO,
			wantStage: StageReadConfig,
		},
		{
			name:      "missing reference",
			job:       Job{InputPath: input, ConfigDir: configDir, ReferencePath: filepath.Join(dir, "nope-dff.xlsx")},
			wantKind:  ErrIO,
			wantStage: StageReadReference,
		},
		{
			name:      "missing join key",
			job:       Job{InputPath: noKeyPath, ConfigDir: configDir, ReferencePath: refPath},
			wantKind:  ErrProcessing,
			wantStage: StageMerge,
		},
		{
			name:      "config value longer than a cell",
			job:       Job{InputPath: input, ConfigDir: bigConfigDir, ReferencePath: emptyRef},
			wantKind:  ErrProcessing,
			wantStage: StageWrite,
		},
		{
			name:      "unwritable output",
			job:       Job{InputPath: input, ConfigDir: configDir, ReferencePath: emptyRef, OutputPath: filepath.Join(dir, "no-such-dir", "out.xlsx")},
			wantKind:  ErrIO,
			wantStage: StageWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.job.OutputPath == "" {
				tt.job.OutputPath = filepath.Join(t.TempDir(), OutputName)
			}

			_, err := Generate(context.Background(), tt.job)
			require.Error(t, err)

			var genErr *Error
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, tt.wantStage, genErr.Stage)
			assert.True(t, errors.Is(err, tt.wantKind), "kind = %v, want %v", KindOf(err), tt.wantKind)
			assert.True(t, IsPipelineError(err))

			_, statErr := os.Stat(tt.job.OutputPath)
			assert.True(t, os.IsNotExist(statErr), "output should not exist after a failed run")
		})
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	job := Job{
		InputPath:     writeTable(t, filepath.Join(dir, "in.xlsx"), primaryAB()),
		ConfigDir:     writeConfigDir(t, filepath.Join(dir, "folder"), nil),
		ReferencePath: filepath.Join(dir, EmptyReferenceName),
		OutputPath:    filepath.Join(dir, OutputName),
	}
	require.NoError(t, WriteEmptyReference(job.ReferencePath))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Generate(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
}
