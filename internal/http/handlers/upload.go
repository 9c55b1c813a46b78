package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
)

const (
	maxMultipartMemory = 32 << 20
	maxUploadBytes     = 64 << 20
)

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxUploadBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fh.Filename, maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fh.Filename, maxUploadBytes)
	}
	return data, nil
}
