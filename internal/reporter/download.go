package reporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

// Downloader hands a generated file to the user
type Downloader interface {
	// OfferDownload stores data under filename and returns where it ended up
	OfferDownload(data []byte, filename, mime string) (string, error)
}

// FileDownloader writes offered files into an output directory. When the
// target cannot be written, a backup name next to it is tried once.
type FileDownloader struct {
	fs     afero.Fs
	dir    string
	logger logger.Logger
}

// NewFileDownloader creates a downloader writing into dir on fs
func NewFileDownloader(fs afero.Fs, dir string, log logger.Logger) *FileDownloader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &FileDownloader{
		fs:     fs,
		dir:    dir,
		logger: log.WithComponent("downloader"),
	}
}

// Dir returns the output directory
func (d *FileDownloader) Dir() string {
	return d.dir
}

// OfferDownload implements Downloader
func (d *FileDownloader) OfferDownload(data []byte, filename, mime string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", errors.ExportError(filename, fmt.Errorf("empty file name"))
	}
	if err := d.fs.MkdirAll(d.dir, 0o755); err != nil {
		return "", errors.ExportError(filename, err).WithContext("dir", d.dir)
	}

	path := filepath.Join(d.dir, filename)
	err := afero.WriteFile(d.fs, path, data, 0o644)
	if err == nil {
		d.logger.WithFields(logger.Fields{
			"file":  path,
			"mime":  mime,
			"bytes": len(data),
		}).Info("File written")
		return path, nil
	}

	if !isFileError(err) {
		return "", errors.ExportError(filename, err)
	}

	backup := backupPath(path)
	d.logger.WithError(err).WithFields(logger.Fields{
		"original_file": path,
		"backup_file":   backup,
	}).Warn("Could not write file, trying backup name")

	if backupErr := afero.WriteFile(d.fs, backup, data, 0o644); backupErr != nil {
		return "", errors.ExportError(filename,
			fmt.Errorf("both primary and backup output failed: primary=%v, backup=%v", err, backupErr))
	}
	d.logger.WithField("backup_file", backup).Info("File written to backup location")
	return backup, nil
}

func isFileError(err error) bool {
	return os.IsPermission(err) ||
		os.IsNotExist(err) ||
		os.IsExist(err) ||
		isSpaceError(err)
}

func isSpaceError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "device full")
}

// backupPath inserts _backup before the extension
func backupPath(original string) string {
	dir := filepath.Dir(original)
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]

	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}
