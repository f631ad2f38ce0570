// Package rename rewrites legacy per-case file names such as "sample03.in" or
// "t1.ans" into the canonical "<digits>.<ext>" form.
package rename

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"

	"caseport/internal/errs"
)

// Answer extension policies.
const (
	// AnswerAsOut maps both .out and .ans onto .out. The original .ans
	// identity is lost.
	AnswerAsOut = "out"
	// AnswerKeepAns keeps .ans files as .ans.
	AnswerKeepAns = "ans"
)

// Missing digit policies for stems without a trailing number.
const (
	MissingKeep   = "keep"
	MissingReject = "reject"
)

type Options struct {
	AnswerExtension string
	MissingDigits   string
}

func DefaultOptions() Options {
	return Options{AnswerExtension: AnswerAsOut, MissingDigits: MissingKeep}
}

// Validate rejects unknown policy values.
func (o Options) Validate() error {
	switch o.AnswerExtension {
	case AnswerAsOut, AnswerKeepAns:
	default:
		return fmt.Errorf("answer extension must be %q or %q, got %q", AnswerAsOut, AnswerKeepAns, o.AnswerExtension)
	}
	switch o.MissingDigits {
	case MissingKeep, MissingReject:
	default:
		return fmt.Errorf("missing digits policy must be %q or %q, got %q", MissingKeep, MissingReject, o.MissingDigits)
	}
	return nil
}

// Rename is one performed move, paths relative to the walked root.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Report lists what a pass changed and what it deliberately left alone.
type Report struct {
	Renamed []Rename `json:"renamed"`
	Skipped []string `json:"skipped,omitempty"`
}

// CanonicalName returns the canonical form of a base file name. ok is false
// when the name is not a case file or is left untouched by policy.
func CanonicalName(name string, opts Options) (canonical string, ok bool, err error) {
	if !utf8.ValidString(name) {
		return "", false, &errs.Error{Kind: errs.InvalidFilenameEncoding, Field: fmt.Sprintf("%q", name), Msg: "file name is not valid UTF-8"}
	}
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return name, false, nil
	}
	stem, ext := name[:dot], name[dot+1:]
	var mapped string
	switch ext {
	case "in":
		mapped = "in"
	case "out":
		mapped = "out"
	case "ans":
		mapped = "out"
		if opts.AnswerExtension == AnswerKeepAns {
			mapped = "ans"
		}
	default:
		return name, false, nil
	}
	digits := trailingDigits(stem)
	if digits == "" {
		if opts.MissingDigits == MissingReject {
			return "", false, &errs.Error{Kind: errs.MissingCaseNumber, Field: name, Msg: "file name has no trailing case number"}
		}
		return name, false, nil
	}
	return digits + "." + mapped, true, nil
}

func trailingDigits(stem string) string {
	i := len(stem)
	for i > 0 && stem[i-1] >= '0' && stem[i-1] <= '9' {
		i--
	}
	return stem[i:]
}

// Normalizer renames case files under a root directory.
type Normalizer struct {
	Fs      afero.Fs
	Options Options
}

func New(fs afero.Fs, opts Options) Normalizer {
	return Normalizer{Fs: fs, Options: opts}
}

// Run normalizes every file below root. Entries are collected before any
// rename, then processed in lexical order; the first collision or invalid
// name aborts the pass.
func (n Normalizer) Run(root string) (Report, error) {
	var report Report
	if err := n.Options.Validate(); err != nil {
		return report, err
	}
	var files []string
	err := afero.Walk(n.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walk %s: %w", root, err)
	}
	for _, path := range files {
		dir, base := filepath.Split(path)
		canonical, ok, err := CanonicalName(base, n.Options)
		if err != nil {
			return report, atPath(err, rel(root, path))
		}
		if !ok {
			if canonical == base && isCaseFile(base) {
				report.Skipped = append(report.Skipped, rel(root, path))
			}
			continue
		}
		target := filepath.Join(dir, canonical)
		if target == filepath.Clean(path) {
			continue
		}
		exists, err := afero.Exists(n.Fs, target)
		if err != nil {
			return report, err
		}
		if exists {
			return report, &errs.Error{
				Kind:  errs.RenameCollision,
				Field: rel(root, path),
				Msg:   fmt.Sprintf("target %s already exists", rel(root, target)),
			}
		}
		if err := n.Fs.Rename(path, target); err != nil {
			return report, fmt.Errorf("rename %s: %w", rel(root, path), err)
		}
		report.Renamed = append(report.Renamed, Rename{From: rel(root, path), To: rel(root, target)})
	}
	return report, nil
}

// atPath replaces the bare file name recorded by CanonicalName with the
// path relative to the walked root.
func atPath(err error, path string) error {
	var e *errs.Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Field = path
	return &cp
}

func isCaseFile(name string) bool {
	switch filepath.Ext(name) {
	case ".in", ".out", ".ans":
		return true
	}
	return false
}

func rel(root, path string) string {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(r)
}
