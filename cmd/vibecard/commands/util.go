package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vibelab/vibecard/pkg/cli"
	"github.com/vibelab/vibecard/pkg/vibe"
)

// saveAssets writes the card's binary assets and story into dir and
// returns the written paths.
func saveAssets(dir string, a *vibe.GeneratedAssets) ([]string, error) {
	if a == nil {
		return nil, fmt.Errorf("no assets to save")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var saved []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := cli.OutputBytes(data, path); err != nil {
			return err
		}
		saved = append(saved, path)
		return nil
	}

	if !a.Image.Empty() {
		if err := write("art"+assetExt(a.Image.MIMEType), a.Image.Data); err != nil {
			return saved, err
		}
	}
	if !a.Speech.Empty() {
		if err := write("narration"+assetExt(a.Speech.MIMEType), a.Speech.Data); err != nil {
			return saved, err
		}
	}
	if a.Story != "" {
		if err := write("story.txt", []byte(a.Story+"\n")); err != nil {
			return saved, err
		}
	}
	if a.VideoURI != "" {
		if err := write("video-uri.txt", []byte(a.VideoURI+"\n")); err != nil {
			return saved, err
		}
	}
	return saved, nil
}

// assetExt maps an asset MIME type to a file extension.
func assetExt(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}
