package disclosure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name string, body []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	return path
}

func stubPDFToText(t *testing.T, f func(context.Context, string) (string, error)) {
	t.Helper()
	orig := pdfToText
	pdfToText = f
	t.Cleanup(func() { pdfToText = orig })
}

func TestReadPlainText(t *testing.T) {
	path := write(t, "invention.txt", []byte("\n  A sensor that measures optical density.  \n"))
	got, err := Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "A sensor that measures optical density.", got.Body)
	assert.Equal(t, "plain", got.Method)
	assert.False(t, got.Truncated)
}

func TestReadPDFUsesPdftotext(t *testing.T) {
	stubPDFToText(t, func(context.Context, string) (string, error) { return "extracted disclosure text", nil })
	got, err := Read(context.Background(), write(t, "d.pdf", []byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, "extracted disclosure text", got.Body)
	assert.Equal(t, "pdftotext", got.Method)
}

func TestReadPDFFallsBackToPrintableRuns(t *testing.T) {
	stubPDFToText(t, func(context.Context, string) (string, error) { return "", errors.New("not installed") })
	blob := []byte("%PDF\x00\x01short\x02A wireless mesh network for grid fault detection\xff\xfe")
	got, err := Read(context.Background(), write(t, "d.pdf", blob))
	require.NoError(t, err)
	assert.Equal(t, "byte-fallback", got.Method)
	assert.Equal(t, "A wireless mesh network for grid fault detection", got.Body)
}

func TestReadPDFWithoutText(t *testing.T) {
	stubPDFToText(t, func(context.Context, string) (string, error) { return "  ", nil })
	_, err := Read(context.Background(), write(t, "d.pdf", []byte{0x00, 0x01, 0x02}))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestReadTruncatesLongText(t *testing.T) {
	path := write(t, "long.md", []byte(strings.Repeat("é", maxTextRunes+10)))
	got, err := Read(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, got.Truncated)
	assert.Equal(t, maxTextRunes, len([]rune(got.Body)))
}

func TestReadRejectsUnsupportedAndOversized(t *testing.T) {
	_, err := Read(context.Background(), write(t, "d.docx", []byte("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")

	big := write(t, "big.txt", nil)
	require.NoError(t, os.Truncate(big, MaxFileBytes+1))
	_, err = Read(context.Background(), big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")
}

func TestReadBytes(t *testing.T) {
	got, err := ReadBytes(context.Background(), "notes/Invention.TXT", []byte("uploaded text"))
	require.NoError(t, err)
	assert.Equal(t, "uploaded text", got.Body)

	_, err = ReadBytes(context.Background(), "scan.png", []byte("x"))
	assert.Error(t, err)
}
