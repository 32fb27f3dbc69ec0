package entity

import (
	"github.com/joseph-ayodele/income-verifier/constants"
)

// Document is one uploaded file as handed to the processor.
type Document struct {
	Name    string `json:"name"`
	HashHex string `json:"hash_hex"`
	Content []byte `json:"-"`
}

// ClassifiedDocument pairs a document with its detected type and extracted text.
type ClassifiedDocument struct {
	Name    string                 `json:"name"`
	HashHex string                 `json:"hash_hex"`
	Type    constants.DocumentType `json:"type"`
	Text    string                 `json:"-"`
}
