package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// DefaultEncoding is the target of the re-encoding stage when none is configured.
var DefaultEncoding encoding.Encoding = simplifiedchinese.GBK

// LookupEncoding resolves a WHATWG encoding label such as "gbk" or "gb18030".
func LookupEncoding(label string) (encoding.Encoding, error) {
	if strings.TrimSpace(label) == "" {
		return DefaultEncoding, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return enc, nil
}

// Transcode re-encodes every field of a UTF-8 CSV into enc, keeping rows and columns.
// Characters enc cannot represent are written as HTML numeric character references.
func Transcode(r io.Reader, w io.Writer, enc encoding.Encoding) error {
	records, err := readRecords(r)
	if err != nil {
		return err
	}

	encoder := encoding.HTMLEscapeUnsupported(enc.NewEncoder())
	cw := csv.NewWriter(w)
	for i, record := range records {
		converted := make([]string, len(record))
		for j, field := range record {
			out, err := encoder.String(field)
			if err != nil {
				return fmt.Errorf("encode line %d field %d: %w", i+1, j+1, err)
			}
			converted[j] = out
		}
		if err := cw.Write(converted); err != nil {
			return fmt.Errorf("write line %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TranscodeFile re-encodes the CSV at src into dst atomically.
func TranscodeFile(src, dst string, enc encoding.Encoding) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	return WriteFileAtomic(dst, func(w io.Writer) error {
		return Transcode(in, w, enc)
	})
}
