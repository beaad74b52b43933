package filemgr

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"cropcart/utils"

	"github.com/disintegration/imaging"
)

const cropImageDir = "static/crop-images"

// SaveCropImage stores an uploaded image plus a 300px thumbnail under
// crop-images/{ownerId}/{timestamp}_{filename} and returns the public URL path.
func SaveCropImage(file multipart.File, header *multipart.FileHeader, ownerID string) (string, error) {
	img, err := imaging.Decode(file)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	fileName := fmt.Sprintf("%d_%s", time.Now().UnixNano(), utils.SanitizeFilename(header.Filename))
	ownerDir := filepath.Join(cropImageDir, ownerID)
	thumbDir := filepath.Join(ownerDir, "thumb")

	if err := utils.EnsureDir(ownerDir); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := utils.EnsureDir(thumbDir); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	if err := imaging.Save(img, filepath.Join(ownerDir, fileName)); err != nil {
		return "", fmt.Errorf("failed to save original image: %w", err)
	}

	thumbImg := imaging.Resize(img, 300, 0, imaging.Lanczos)
	if err := imaging.Save(thumbImg, filepath.Join(thumbDir, fileName)); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}

	return "/static/crop-images/" + ownerID + "/" + fileName, nil
}

// SaveFormFile pulls the named file out of a parsed multipart form. Missing
// file is not an error; the listing simply keeps its previous image.
func SaveFormFile(form *multipart.Form, field, ownerID string) (string, error) {
	if form == nil || len(form.File[field]) == 0 {
		return "", nil
	}
	header := form.File[field][0]
	if !utils.SupportedImageTypes[header.Header.Get("Content-Type")] {
		return "", fmt.Errorf("unsupported image type %q", header.Header.Get("Content-Type"))
	}
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()
	return SaveCropImage(file, header, ownerID)
}
