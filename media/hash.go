package media

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// ContentHash returns the md5 hex digest (32 chars) of the raw upload bytes.
// It is a dedupe key, not a security boundary.
func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// PerceptualHash returns the difference hash of img in goimagehash string form.
func PerceptualHash(img image.Image) (string, error) {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return "", fmt.Errorf("failed to compute perceptual hash: %w", err)
	}
	return hash.ToString(), nil
}
