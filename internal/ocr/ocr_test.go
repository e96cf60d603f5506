package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner fakes pdftoppm by writing empty page images and tesseract by
// returning canned text per page number.
type stubRunner struct {
	pages     int
	texts     map[int]string
	failPage  int
	failPPM   bool
	failAll   bool
	tessCalls []string
	ppmArgs   []string
}

func (s *stubRunner) Run(_ context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	logger.Debug("stub.exec", "cmd", name)
	switch name {
	case "pdftoppm":
		s.ppmArgs = args
		if s.failPPM {
			return nil, []byte("syntax error"), errors.New("exit status 1")
		}
		prefix := args[len(args)-1]
		for i := 1; i <= s.pages; i++ {
			f := fmt.Sprintf("%s-%02d.png", prefix, i)
			if err := os.WriteFile(f, nil, 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		img := args[0]
		s.tessCalls = append(s.tessCalls, filepath.Base(img))
		var n int
		_, _ = fmt.Sscanf(filepath.Base(img), "page-%d.png", &n)
		if s.failAll || n == s.failPage {
			return nil, []byte("read error"), errors.New("exit status 1")
		}
		return []byte(s.texts[n]), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %s", name)
}

func TestScanPDF_StopsAtFirstMatchingPage(t *testing.T) {
	r := &stubRunner{pages: 3, texts: map[int]string{1: "cover", 2: "match here", 3: "match again"}}
	e := NewExtractorWithRunner(Config{}, r, nil)

	var seen []int
	res, err := e.ScanPDF(context.Background(), []byte("%PDF-1.4"), func(page int, text string) bool {
		seen = append(seen, page)
		return strings.Contains(text, "match")
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 2, res.Scanned)
	assert.True(t, res.Stopped)
	assert.Equal(t, []string{"page-01.png", "page-02.png"}, r.tessCalls)
	assert.Contains(t, r.ppmArgs, "300")
}

func TestScanPDF_UsesConfiguredDPIAndPageLimit(t *testing.T) {
	r := &stubRunner{pages: 4, texts: map[int]string{}}
	e := NewExtractorWithRunner(Config{DPI: 150, MaxPages: 2}, r, nil)

	res, err := e.ScanPDF(context.Background(), []byte("%PDF"), func(int, string) bool { return false })
	require.NoError(t, err)

	assert.Equal(t, 2, res.Pages)
	assert.False(t, res.Stopped)
	assert.Equal(t, []string{"-r", "150", "-png"}, r.ppmArgs[:3])
}

func TestScanPDF_SkipsUnreadablePage(t *testing.T) {
	r := &stubRunner{pages: 2, failPage: 1, texts: map[int]string{2: "second"}}
	e := NewExtractorWithRunner(Config{}, r, nil)

	var got []string
	res, err := e.ScanPDF(context.Background(), []byte("%PDF"), func(_ int, text string) bool {
		got = append(got, text)
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, got)
	assert.NotEmpty(t, res.Warnings)
}

func TestScanPDF_NoPageReadable(t *testing.T) {
	r := &stubRunner{pages: 3, failAll: true}
	e := NewExtractorWithRunner(Config{}, r, nil)

	visited := false
	res, err := e.ScanPDF(context.Background(), []byte("%PDF"), func(int, string) bool {
		visited = true
		return false
	})
	require.ErrorIs(t, err, ErrNoPagesRead)
	assert.False(t, visited)
	assert.Equal(t, 3, res.Pages)
	assert.Zero(t, res.Read)
	assert.Len(t, res.Warnings, 3)
}

func TestScanPDF_LogsStepAndPage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := &stubRunner{pages: 2, texts: map[int]string{1: "a", 2: "b"}}
	e := NewExtractorWithRunner(Config{}, r, logger)

	_, err := e.ScanPDF(context.Background(), []byte("%PDF"), func(int, string) bool { return false })
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"step":"rasterize"`)
	assert.Contains(t, out, `"step":"ocr","page":2`)
}

func TestScanPDF_Errors(t *testing.T) {
	e := NewExtractorWithRunner(Config{}, &stubRunner{}, nil)
	_, err := e.ScanPDF(context.Background(), nil, func(int, string) bool { return true })
	assert.ErrorIs(t, err, ErrEmptyPDF)

	e = NewExtractorWithRunner(Config{}, &stubRunner{failPPM: true}, nil)
	_, err = e.ScanPDF(context.Background(), []byte("%PDF"), func(int, string) bool { return true })
	assert.ErrorContains(t, err, "pdftoppm")

	e = NewExtractorWithRunner(Config{}, &stubRunner{pages: 0}, nil)
	_, err = e.ScanPDF(context.Background(), []byte("%PDF"), func(int, string) bool { return true })
	assert.ErrorContains(t, err, "no pages rendered")
}

func TestSortByPage(t *testing.T) {
	paths := []string{"/t/page-10.png", "/t/page-2.png", "/t/page-1.png"}
	sortByPage(paths)
	assert.Equal(t, []string{"/t/page-1.png", "/t/page-2.png", "/t/page-10.png"}, paths)
}
