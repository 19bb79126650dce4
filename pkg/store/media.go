package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

const mediaInfoSuffix = ".info.json"

// AddMedia stores an attachment in the bucket matching its type. A name
// collision is resolved by inserting a timestamp suffix before the
// extension; the returned MediaFile carries the name actually used.
func (s *NotebookStore) AddMedia(id, originalName string, data []byte) (models.MediaFile, error) {
	bucket := ClassifyMedia(originalName)
	dir := filepath.Join(s.Dir(id), bucket)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.MediaFile{}, fmt.Errorf("failed to create media directory: %w", err)
	}

	fileName := originalName
	if _, err := os.Stat(filepath.Join(dir, fileName)); err == nil {
		ext := filepath.Ext(originalName)
		base := strings.TrimSuffix(originalName, ext)
		fileName = fmt.Sprintf("%s-%d%s", base, time.Now().UnixMilli(), ext)
	}

	if err := os.WriteFile(filepath.Join(dir, fileName), data, 0644); err != nil {
		return models.MediaFile{}, fmt.Errorf("failed to write media file: %w", err)
	}

	fileType := models.MediaImage
	switch bucket {
	case BucketVideos:
		fileType = models.MediaVideo
	case BucketOutputs:
		fileType = "output"
	}

	media := models.MediaFile{
		FileName:     fileName,
		OriginalName: originalName,
		Size:         int64(len(data)),
		FileType:     fileType,
		UploadedAt:   time.Now(),
	}
	if err := writeJSON(filepath.Join(dir, fileName+mediaInfoSuffix), media); err != nil {
		return models.MediaFile{}, err
	}
	return media, s.touch(id)
}

// ListMedia returns the attachments of one bucket, sorted by file name.
// Payload files without a sidecar still get an entry synthesized from the
// file itself.
func (s *NotebookStore) ListMedia(id, bucket string) []models.MediaFile {
	dir := filepath.Join(s.Dir(id), bucket)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []models.MediaFile{}
	}

	byName := map[string]models.MediaFile{}
	var plain []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), mediaInfoSuffix) {
			var media models.MediaFile
			if readJSON(filepath.Join(dir, entry.Name()), &media) {
				byName[media.FileName] = media
			}
			continue
		}
		plain = append(plain, entry.Name())
	}

	var files []models.MediaFile
	for _, name := range plain {
		if media, ok := byName[name]; ok {
			files = append(files, media)
			continue
		}
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		files = append(files, models.MediaFile{
			FileName:     name,
			OriginalName: name,
			Size:         info.Size(),
			FileType:     bucketFileType(bucket),
			UploadedAt:   info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].FileName < files[j].FileName })
	return files
}

// MediaPath returns the on-disk location of a stored attachment.
func (s *NotebookStore) MediaPath(id, bucket, fileName string) (string, error) {
	path := filepath.Join(s.Dir(id), bucket, fileName)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("media file %s: %w", fileName, models.ErrNotFound)
	}
	return path, nil
}

func bucketFileType(bucket string) string {
	switch bucket {
	case BucketImages:
		return models.MediaImage
	case BucketVideos:
		return models.MediaVideo
	default:
		return "output"
	}
}
