package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/orvilledev/smw-spd-formatter/internal/models"
)

// Upload is one named byte blob received from the caller: either a
// spreadsheet document or a zip archive containing spreadsheets.
type Upload struct {
	Name string
	Data []byte
}

var spreadsheetExts = []string{".xlsx", ".xls", ".xlsm"}

// IsSpreadsheet reports whether the name carries a spreadsheet extension.
func IsSpreadsheet(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range spreadsheetExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// entryName builds the archive-derived name {archiveBase}_{entryBase}.
func entryName(archiveName, entry string) string {
	base := archiveName
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return base + "_" + path.Base(entry)
}

// Expand flattens uploads into processable spreadsheet blobs: spreadsheets
// pass through, zip archives are walked and matching entries extracted.
// Unreadable archives or entries become warnings, never a batch failure.
func Expand(uploads []Upload) ([]Upload, []models.Warning) {
	var out []Upload
	var warnings []models.Warning

	for _, u := range uploads {
		lower := strings.ToLower(u.Name)
		switch {
		case IsSpreadsheet(lower):
			out = append(out, u)
		case strings.HasSuffix(lower, ".zip"):
			entries, err := extractSpreadsheets(u.Name, u.Data)
			if err != nil {
				warnings = append(warnings, models.Warning{File: u.Name, Message: err.Error()})
				log.Warn().Err(err).Str("file", u.Name).Msg("Cannot read zip archive")
				continue
			}
			out = append(out, entries...)
		default:
			warnings = append(warnings, models.Warning{
				File:    u.Name,
				Message: "unsupported file type",
			})
		}
	}
	return out, warnings
}

func extractSpreadsheets(name string, data []byte) ([]Upload, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s as a zip archive", name)
	}

	var out []Upload
	for _, zf := range zr.File {
		if !IsSpreadsheet(zf.Name) {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot open archive entry %s", zf.Name)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read archive entry %s", zf.Name)
		}
		out = append(out, Upload{Name: entryName(name, zf.Name), Data: content})
	}
	return out, nil
}

// Find searches upload names, and names inside zip archives, for the given
// lowercase keywords. Matching spreadsheets are returned with archive
// entries extracted under their derived names.
func Find(uploads []Upload, keywords []string) ([]Upload, []models.Warning) {
	var patterns []string
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			patterns = append(patterns, k)
		}
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	matchesAny := func(name string) bool {
		lower := strings.ToLower(name)
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				return true
			}
		}
		return false
	}

	var found []Upload
	var warnings []models.Warning
	for _, u := range uploads {
		lower := strings.ToLower(u.Name)
		switch {
		case IsSpreadsheet(lower) && matchesAny(lower):
			found = append(found, u)
		case strings.HasSuffix(lower, ".zip"):
			zr, err := zip.NewReader(bytes.NewReader(u.Data), int64(len(u.Data)))
			if err != nil {
				warnings = append(warnings, models.Warning{File: u.Name, Message: "cannot read zip archive"})
				continue
			}
			for _, zf := range zr.File {
				if !IsSpreadsheet(zf.Name) || !matchesAny(zf.Name) {
					continue
				}
				rc, err := zf.Open()
				if err != nil {
					continue
				}
				content, err := io.ReadAll(rc)
				rc.Close()
				if err != nil {
					continue
				}
				found = append(found, Upload{Name: entryName(u.Name, zf.Name), Data: content})
			}
		}
	}
	return found, warnings
}

// BuildZip packages uploads into one zip blob for download.
func BuildZip(uploads []Upload) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, u := range uploads {
		w, err := zw.Create(u.Name)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create zip entry")
		}
		if _, err := w.Write(u.Data); err != nil {
			return nil, errors.Wrapf(err, "failed to write zip entry %s", u.Name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finalize zip")
	}
	return buf.Bytes(), nil
}
