package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/matheus-rech/clinical-study-extraction/internal/errors"
)

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// Open validates a PDF file and returns its page count
func (v *Validator) Open(filePath string) (*Document, error) {
	if filePath == "" {
		return nil, errors.New(errors.ErrorTypePDF, "path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrorTypePDF, "file does not exist: %s", filePath)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypePDF, err, "cannot access file")
	}

	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return nil, err
	}

	pages, err := pageCount(filePath)
	if err != nil {
		return nil, err
	}
	return &Document{Path: filePath, PageCount: pages}, nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return errors.Newf(errors.ErrorTypePDF, "path is a directory, not a file: %s", filePath)
	}

	if !isPDFFile(filePath) {
		return errors.Newf(errors.ErrorTypePDF, "file is not a PDF: %s", filePath)
	}

	if fileInfo.Size() == 0 {
		return errors.Newf(errors.ErrorTypePDF, "file is empty: %s", filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return errors.Newf(errors.ErrorTypePDF, "file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

// pageCount opens the PDF and returns its number of pages
func pageCount(filePath string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(errors.ErrorTypePDF, fmt.Errorf("%v", r), "invalid PDF file")
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return 0, errors.Wrap(errors.ErrorTypePDF, err, "invalid PDF file")
	}
	defer f.Close()

	n = r.NumPage()
	if n < 1 {
		return 0, errors.New(errors.ErrorTypePDF, "PDF has no pages")
	}
	return n, nil
}

func isPDFFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
