package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdraft-backend/collector"
	"lexdraft-backend/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMappingsCheck(t *testing.T) {
	out, err := run(t, "mappings", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ contrato")
	assert.Contains(t, out, "Catalog valid (8 document types)")

	bad := writeFile(t, t.TempDir(), "bad.yaml", "types: {}\n")
	_, err = run(t, "mappings", "check", bad)
	assert.Error(t, err)
}

func TestMappingsPublish(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORAGE_TYPE", "local")
	t.Setenv("LOCAL_STORAGE_PATH", dir)
	t.Setenv("MAPPINGS_PATH", "mappings/doctypes.yaml")

	file := writeFile(t, t.TempDir(), "doctypes.yaml", string(collector.DefaultCatalogBytes()))
	out, err := run(t, "mappings", "publish", file)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ published mappings/doctypes.yaml")

	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	data, err := storage.ReadAll(context.Background(), store, "mappings/doctypes.yaml")
	require.NoError(t, err)
	assert.Equal(t, collector.DefaultCatalogBytes(), data)
}

func TestCollect(t *testing.T) {
	form := writeFile(t, t.TempDir(), "form.json", `{"form_data": {"paciente": "João", "autoridadecoatora": "Delegado"}}`)

	out, err := run(t, "collect", form)
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "habeas_corpus", result["document_type"])
	assert.Contains(t, result["sections"], "liminar")

	_, err = run(t, "collect", writeFile(t, t.TempDir(), "bad.json", "{"))
	assert.Error(t, err)
}

func TestIngestDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "codigo_civil.txt", "Art. 186. Aquele que...\n\nArt. 927. Aquele que causar dano...")
	writeFile(t, dir, "notas.txt", "texto sem pistas")
	writeFile(t, dir, "ignorar.pdf", "binário")

	out, err := run(t, "ingest", dir, "--dry-run", "--max-chars", "40")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ codigo_civil.txt (legislacao): 2 chunks")
	assert.NotContains(t, out, "notas.txt")
	assert.Contains(t, out, "Ingested 2 chunks from 1 files")

	_, err = run(t, "ingest", dir, "--dry-run", "--type", "sentenca")
	assert.Error(t, err)
}
