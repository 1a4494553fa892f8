package utils

import (
	"io"
	"os"
	"unicode/utf8"
)

// sniffLength bounds the number of bytes inspected when classifying a file.
const sniffLength = 8000

// IsBinary reports whether the provided byte slice appears to contain binary data.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if !utf8.Valid(data) {
		return true
	}
	for _, byteValue := range data {
		if byteValue == 0 {
			return true
		}
	}
	return false
}

// IsFileBinary reads up to sniffLength bytes from the file at path and reports
// whether the content appears to be binary. Unreadable files are treated as text.
func IsFileBinary(path string) bool {
	fileHandle, openError := os.Open(path)
	if openError != nil {
		return false
	}
	defer fileHandle.Close()

	sniffBuffer := make([]byte, sniffLength)
	bytesRead, readError := fileHandle.Read(sniffBuffer)
	if readError != nil && readError != io.EOF {
		return false
	}
	return IsBinary(sniffBuffer[:bytesRead])
}
