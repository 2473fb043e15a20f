package printer

import (
	"bytes"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func pdfConfiguration() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// AssemblePageBuffers merges the ordered page buffers into one document.
// Input order is preserved and page content is never modified; a buffer that
// fails to parse aborts the whole attempt.
func AssemblePageBuffers(buffers [][]byte) ([]byte, error) {
	if len(buffers) == 0 {
		return nil, stageError(CodeAssemblyFailure, "no page buffers to assemble")
	}

	readers := make([]io.ReadSeeker, len(buffers))
	for i, buf := range buffers {
		readers[i] = bytes.NewReader(buf)
	}

	var merged bytes.Buffer
	if err := api.MergeRaw(readers, &merged, false, pdfConfiguration()); err != nil {
		return nil, stageError(CodeAssemblyFailure, "merge page buffers: %w", err)
	}
	return merged.Bytes(), nil
}

// PageCount reports the number of pages in a single buffer.
func PageCount(buffer []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(buffer), pdfConfiguration())
	if err != nil {
		return 0, stageError(CodeAssemblyFailure, "count pages: %w", err)
	}
	return count, nil
}
