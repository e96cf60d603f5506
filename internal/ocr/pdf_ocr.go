package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)
	rePageNum  = regexp.MustCompile(`-(\d+)\.png$`)
)

// rasterize renders every page of path to PNG under dir and returns the images in page order.
func (e *Extractor) rasterize(ctx context.Context, path, dir string) ([]string, []string, error) {
	prefix := filepath.Join(dir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger.With("step", "rasterize", "pdf", filepath.Base(path)), "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// collect generated pngs (page-1.png, page-2.png, ... zero padded for long documents)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sortByPage(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}
	return matches, nil, nil
}

func sortByPage(paths []string) {
	num := func(p string) int {
		m := rePageNum.FindStringSubmatch(p)
		if m == nil {
			return 0
		}
		n, _ := strconv.Atoi(m[1])
		return n
	}
	sort.SliceStable(paths, func(i, j int) bool { return num(paths[i]) < num(paths[j]) })
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string, page int) (string, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger.With("step", "ocr", "page", page), args...)
	if err != nil {
		return "", []string{strings.TrimSpace(string(errb))}, fmt.Errorf("tesseract: %w", err)
	}

	// minor cleanup of obvious line noise
	return reBoxNoise.ReplaceAllString(string(out), ""), nil, nil
}
