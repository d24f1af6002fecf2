package services

import (
	"fmt"
	"os"

	"github.com/cloudinary/cloudinary-go/v2"
)

type ImageService struct {
	cld *cloudinary.Cloudinary
}

func NewImageService() (*ImageService, error) {
	// Get Cloudinary configuration from environment
	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")

	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("missing Cloudinary configuration")
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &ImageService{cld: cld}, nil
}

// PhotoURL builds the delivery URL for a stored profile photo, cropped to a
// small square for use in digest emails
func (s *ImageService) PhotoURL(publicID string) (string, error) {
	image, err := s.cld.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("failed to build image asset for %s: %w", publicID, err)
	}

	image.Transformation = "c_fill,g_face,h_48,w_48/q_auto,f_auto"

	url, err := image.String()
	if err != nil {
		return "", fmt.Errorf("failed to build image URL for %s: %w", publicID, err)
	}
	return url, nil
}
