package resources

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

// Minifier compresses CSS or JS source.
type Minifier interface {
	Minify(kind Kind, src []byte) ([]byte, error)
}

// MinifierFunc adapts a function to Minifier.
type MinifierFunc func(kind Kind, src []byte) ([]byte, error)

func (f MinifierFunc) Minify(kind Kind, src []byte) ([]byte, error) { return f(kind, src) }

var mediaTypes = map[Kind]string{
	KindCSS: "text/css",
	KindJS:  "application/javascript",
}

// TdewolffMinifier is the default Minifier.
type TdewolffMinifier struct {
	m *minify.M
}

// NewTdewolffMinifier registers the CSS and JS minifiers.
func NewTdewolffMinifier() *TdewolffMinifier {
	m := minify.New()
	m.AddFunc(mediaTypes[KindCSS], css.Minify)
	m.AddFunc(mediaTypes[KindJS], js.Minify)
	return &TdewolffMinifier{m: m}
}

func (t *TdewolffMinifier) Minify(kind Kind, src []byte) ([]byte, error) {
	mt, ok := mediaTypes[kind]
	if !ok {
		return src, nil
	}
	return t.m.Bytes(mt, src)
}
