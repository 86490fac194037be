package common

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
)

// HashFile generates a SHA-1 hash of a local file. It is used to fingerprint
// raw capture files before they are converted.
func HashFile(path string) (string, error) {

	fh, err := os.Open(path)

	if err != nil {
		return "", err
	}

	defer fh.Close()

	h := sha1.New()

	_, err = io.Copy(h, fh)

	if err != nil {
		return "", err
	}

	hash := h.Sum(nil)
	str := hex.EncodeToString(hash[:])

	return str, nil
}
