package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageCountRejectsNonPDF(t *testing.T) {
	n, err := Counter{}.PageCount([]byte("PK\x03\x04 this is a docx"))
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestPageCountRejectsTruncatedPDF(t *testing.T) {
	n, err := Counter{}.PageCount([]byte("%PDF-1.7\n%%EOF"))
	assert.Error(t, err)
	assert.Zero(t, n)
}
