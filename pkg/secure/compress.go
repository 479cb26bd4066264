package secure

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"io"
)

// CompressSnapshot compresses the raw snapshot with zlib and base64-encodes
// the result for storage as an auxiliary ledger payload.
func CompressSnapshot(raw []byte) (string, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to compress snapshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecompressSnapshot reverses CompressSnapshot. Truncated or corrupt input
// is reported as an error, never a panic.
func DecompressSnapshot(blob string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot blob encoding: %w", err)
	}

	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("corrupt snapshot blob: %w", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("truncated snapshot blob: %w", err)
	}
	return raw, nil
}
