package gridformat

import (
	"io"

	"github.com/robert-malhotra/go-gridformat/internal/vtkxml"
)

// VTIWriter writes an image grid and its fields to a .vti file.
type VTIWriter struct {
	*gridWriter
	image ImageGrid
}

// NewVTIWriter returns a writer for image. Invalid images fail with
// ErrValue, unsupported options with ErrInvalidState.
func NewVTIWriter(image ImageGrid, opts ...WriterOption) (*VTIWriter, error) {
	if err := image.Validate(); err != nil {
		return nil, err
	}
	w, err := newGridWriter(image, opts)
	if err != nil {
		return nil, err
	}
	return &VTIWriter{gridWriter: w, image: image}, nil
}

// Rank returns 0; a .vti file is written by a single process.
func (w *VTIWriter) Rank() int { return 0 }

// Extension returns ".vti".
func (w *VTIWriter) Extension() string { return ".vti" }

// WriteTo writes the file to out and releases all registered fields.
func (w *VTIWriter) WriteTo(out io.Writer) (int64, error) {
	defer w.Clear()
	return w.write(out)
}

// Write writes the file to filename, adding the .vti extension if it is
// missing, and returns the path written. Registered fields are released.
func (w *VTIWriter) Write(filename string) (string, error) {
	defer w.Clear()
	path := withExtension(filename, w.Extension())
	err := writeFileAtomic(path, func(out io.Writer) error {
		_, err := w.write(out)
		return err
	})
	if err != nil {
		return "", err
	}
	w.log.Debug("file written", "path", path)
	return path, nil
}

func (w *VTIWriter) write(out io.Writer) (int64, error) {
	cache, err := w.prepare()
	if err != nil {
		return 0, err
	}
	doc, err := w.vtiDocument(cache, w.image, imageDomain{origin: w.image.Origin, whole: w.image.Extents})
	if err != nil {
		return 0, err
	}
	n, err := doc.WriteTo(out)
	if err != nil {
		return n, classify(err)
	}
	return n, nil
}

// imageDomain places a piece in the image it is part of.
type imageDomain struct {
	origin [3]float64 // of the whole image
	begin  [3]int     // first point index of the piece
	whole  [3]int     // cells of the whole image
}

// vtiDocument builds the document of an ImageData file holding image as
// the piece at dom.
func (w *gridWriter) vtiDocument(c *fieldCache, image ImageGrid, dom imageDomain) (*vtkxml.Document, error) {
	doc := vtkxml.NewDocument("ImageData", w.settings)
	id := doc.Root().CreateElement("ImageData")
	id.CreateAttr("WholeExtent", formatExtent([3]int{}, dom.whole))
	id.CreateAttr("Origin", formatVector(dom.origin))
	id.CreateAttr("Spacing", formatVector(image.Spacing))
	id.CreateAttr("Direction", identityDirection)

	if err := addFieldData(doc, id, c); err != nil {
		return nil, err
	}
	piece := id.CreateElement("Piece")
	piece.CreateAttr("Extent", formatExtent(dom.begin, image.Extents))
	if err := addEntityData(doc, piece, c); err != nil {
		return nil, err
	}
	return doc, nil
}

const identityDirection = "1 0 0 0 1 0 0 0 1"
