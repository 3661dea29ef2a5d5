// Copyright (c) 2025 Neomantra Corp
// Reader/Writer compression helpers for the NDJSON export path.
//
// Event log files themselves are compressed inside the columnar format;
// these helpers only wrap the plain-text export streams.

package nexus

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

func wantZstd(filename string, force bool) bool {
	return force || strings.HasSuffix(filename, ".zst") || strings.HasSuffix(filename, ".zstd")
}

// MakeCompressedWriter returns an io.Writer for the given filename, or
// os.Stdout if filename is "-", plus a closing function to defer. If the
// filename ends in ".zst" or ".zstd", or useZstd is true, output is
// zstd-compressed.
func MakeCompressedWriter(filename string, useZstd bool) (io.Writer, func(), error) {
	var writer io.Writer = os.Stdout
	var closer io.Closer
	if filename != "-" {
		file, err := os.Create(filename)
		if err != nil {
			return nil, nil, err
		}
		writer, closer = file, file
	}
	fileCloser := func() {
		if closer != nil {
			closer.Close()
		}
	}

	if !wantZstd(filename, useZstd) {
		return writer, fileCloser, nil
	}
	zstdWriter, err := zstd.NewWriter(writer)
	if err != nil {
		fileCloser()
		return nil, nil, err
	}
	return zstdWriter, func() {
		zstdWriter.Close()
		fileCloser()
	}, nil
}

// MakeCompressedReader returns an io.Reader for the given filename, or
// os.Stdin if filename is "-", plus an io.Closer to defer. If the filename
// ends in ".zst" or ".zstd", or useZstd is true, input is zstd-decompressed.
func MakeCompressedReader(filename string, useZstd bool) (io.Reader, io.Closer, error) {
	var reader io.Reader = os.Stdin
	var closer io.Closer
	if filename != "-" {
		file, err := os.Open(filename)
		if err != nil {
			return nil, nil, err
		}
		reader, closer = file, file
	}

	if !wantZstd(filename, useZstd) {
		return reader, closer, nil
	}
	zreader, err := zstd.NewReader(reader)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, err
	}
	return zreader, closer, nil
}
