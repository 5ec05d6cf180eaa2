// Package zip bundles already-compressed assets into a zip archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"
)

type Asset struct {
	Filename string
	Data     []byte
	Modified time.Time
}

// WriteAssets writes assets to w in order. Entries are stored, not deflated:
// PNG and JPEG payloads do not shrink.
func WriteAssets(w io.Writer, assets []Asset) error {
	zw := zip.NewWriter(w)
	for _, asset := range assets {
		hdr := &zip.FileHeader{
			Name:     asset.Filename,
			Method:   zip.Store,
			Modified: asset.Modified,
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip: add %s: %w", asset.Filename, err)
		}
		if _, err := fw.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", asset.Filename, err)
		}
	}
	return zw.Close()
}

func ArchiveAssets(assets []Asset) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteAssets(&buf, assets); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
