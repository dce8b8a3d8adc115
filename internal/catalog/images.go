package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

var driveFileIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/file/d/([a-zA-Z0-9-_]+)`),
	regexp.MustCompile(`[?&]id=([a-zA-Z0-9-_]+)`),
	regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`),
}

// NormalizeDriveURL rewrites a Google Drive share URL into the thumbnail
// endpoint, which serves without an auth redirect. Non-Drive URLs pass
// through unchanged.
func NormalizeDriveURL(url string) string {
	fileID := driveFileID(url)
	if fileID == "" {
		return url
	}
	return fmt.Sprintf("https://drive.google.com/thumbnail?id=%s&sz=w400-h400", fileID)
}

// ProxiedImageURL builds a resizing-proxy fallback for a Drive file, for
// clients where the thumbnail endpoint is blocked.
func ProxiedImageURL(url string) string {
	fileID := driveFileID(url)
	if fileID == "" {
		return ""
	}
	return fmt.Sprintf("https://images.weserv.nl/?url=drive.google.com/uc?export=view%%26id=%s&w=400&h=400&fit=cover", fileID)
}

func driveFileID(url string) string {
	if !strings.Contains(url, "drive.google.com") {
		return ""
	}
	for _, p := range driveFileIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}
