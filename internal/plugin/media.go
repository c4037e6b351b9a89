package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

const mediaType = "media"

// minMediaFiles is how many media files a directory needs before it reads
// as a media collection.
const minMediaFiles = 10

var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
		".bmp": true, ".tiff": true, ".webp": true,
	}
	audioExtensions = map[string]bool{
		".mp3": true, ".wav": true, ".flac": true, ".aac": true,
		".ogg": true, ".m4a": true,
	}
	videoExtensions = map[string]bool{
		".mp4": true, ".avi": true, ".mkv": true, ".mov": true,
		".wmv": true, ".flv": true, ".webm": true,
	}
	mediaExtensions = mergeExtensions(imageExtensions, audioExtensions, videoExtensions)
)

func mergeExtensions(sets ...map[string]bool) map[string]bool {
	merged := make(map[string]bool)
	for _, set := range sets {
		for ext := range set {
			merged[ext] = true
		}
	}
	return merged
}

// MediaScanner handles media libraries: images, audio, and video. Content
// is binary, so annotation works from filename and type metadata rather
// than samples.
type MediaScanner struct{}

// NewMediaScanner creates the media scanner.
func NewMediaScanner() *MediaScanner {
	return &MediaScanner{}
}

func (s *MediaScanner) Name() string { return mediaType }

// Detect walks the root counting media files and matches once the minimum
// is reached.
func (s *MediaScanner) Detect(root string) bool {
	return countByExtension(root, mediaExtensions, minMediaFiles) >= minMediaFiles
}

// Discover collects media files, skipping hidden paths and exclusions.
func (s *MediaScanner) Discover(root string, cfg *types.CollectionConfig) ([]string, error) {
	return discoverByExtension(root, cfg, mediaExtensions)
}

// ExtractMetadata classifies the media type from the extension. Deeper
// probing (EXIF, tags, codecs) needs format-specific tooling this scanner
// does not shell out to.
func (s *MediaScanner) ExtractMetadata(absPath string) (map[string]any, error) {
	ext := strings.ToLower(filepath.Ext(absPath))
	return map[string]any{
		"file_extension": ext,
		"media_type":     mediaKind(ext),
		"title":          stem(absPath),
	}, nil
}

// CheckStatus for media files only verifies readability.
func (s *MediaScanner) CheckStatus(ctx context.Context, absPath string) map[string]any {
	if _, err := os.Stat(absPath); err != nil {
		return map[string]any{"state": "error", "error": err.Error()}
	}
	return map[string]any{"state": "ok"}
}

// ContentSample describes the file from its name and kind; media content
// itself is binary.
func (s *MediaScanner) ContentSample(absPath string) string {
	kind := mediaKind(strings.ToLower(filepath.Ext(absPath)))
	switch kind {
	case "image":
		return "Media file: " + stem(absPath) + ". Image file"
	case "audio":
		return "Media file: " + stem(absPath) + ". Audio file"
	case "video":
		return "Media file: " + stem(absPath) + ". Video file"
	default:
		return "Media file: " + stem(absPath)
	}
}

func (s *MediaScanner) PromptTemplate() string {
	return "This is a media file from a media library. Describe what it likely contains based on its filename and type; be descriptive and specific."
}

func (s *MediaScanner) ExampleDescriptions() []string {
	return []string{
		"Professional landscape photograph showing mountain scenery at golden hour with dramatic lighting",
		"Original music composition featuring acoustic guitar and orchestral elements in minor key",
		"Educational video tutorial demonstrating software development concepts with live coding examples",
		"High-resolution screenshot capturing user interface design for mobile application",
		"Podcast episode discussing technology trends and their impact on modern society",
	}
}

func (s *MediaScanner) DefaultCategories() []string {
	return []string{
		"photography",
		"music_audio",
		"videos_films",
		"art_design",
		"screenshots",
		"podcasts",
		"presentations",
		"utilities_misc",
	}
}

// Fingerprint defers to the default size+mtime signature.
func (s *MediaScanner) Fingerprint(absPath string, info os.FileInfo) string {
	return ""
}

func mediaKind(ext string) string {
	switch {
	case imageExtensions[ext]:
		return "image"
	case audioExtensions[ext]:
		return "audio"
	case videoExtensions[ext]:
		return "video"
	default:
		return "unknown"
	}
}
