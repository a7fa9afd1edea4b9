// Package pdf reads metadata from uploaded slide decks.
package pdf

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"
)

// Counter counts pages with relaxed validation so slightly malformed exports
// from presentation tools are still accepted.
type Counter struct{}

func (Counter) PageCount(data []byte) (int, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return 0, errors.New("not a pdf document")
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, errors.Wrap(err, "count pdf pages")
	}
	return n, nil
}
