package util

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const (
	licenseKeyCharset       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	licenseKeySegments      = 4
	licenseKeySegmentLength = 4
)

var licenseKeyPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// GenerateLicenseKey produces a key in the XXXX-XXXX-XXXX-XXXX format
// over the A-Z0-9 charset using crypto/rand.
func GenerateLicenseKey() (string, error) {
	segments := make([]string, 0, licenseKeySegments)
	for i := 0; i < licenseKeySegments; i++ {
		segment, err := randomSegment(licenseKeySegmentLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate key segment: %w", err)
		}
		segments = append(segments, segment)
	}
	return strings.Join(segments, "-"), nil
}

func IsValidLicenseKey(key string) bool {
	return licenseKeyPattern.MatchString(key)
}

func randomSegment(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = licenseKeyCharset[int(b)%len(licenseKeyCharset)]
	}
	return string(out), nil
}
