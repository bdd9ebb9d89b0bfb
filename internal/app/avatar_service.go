package app

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"regexp"

	"golang.org/x/image/draw"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

const (
	// MaxAvatarSize is the upload cap in bytes, checked before any decoding.
	MaxAvatarSize = 1_000_000

	avatarWidth  = 250
	avatarHeight = 250
)

var (
	ErrBadImage = errors.New("unable to process image")
	ErrNotFound = errors.New("not found")

	avatarNamePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png)$`)
)

// AllowedAvatarName reports whether the uploaded filename carries an
// accepted image extension.
func AllowedAvatarName(filename string) bool {
	return avatarNamePattern.MatchString(filename)
}

// AvatarService normalizes uploaded avatars: whatever comes in, what gets
// stored is a 250x250 PNG. Aspect ratio is not preserved.
type AvatarService struct {
	userRepo *repository.UserRepository
}

func NewAvatarService(userRepo *repository.UserRepository) *AvatarService {
	return &AvatarService{userRepo: userRepo}
}

func (s *AvatarService) SetAvatar(user *model.User, data []byte) error {
	img, err := decodeImage(data)
	if err != nil {
		return ErrBadImage
	}

	dst := image.NewRGBA(image.Rect(0, 0, avatarWidth, avatarHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return ErrBadImage
	}

	user.Avatar = buf.Bytes()
	return s.userRepo.Update(user)
}

func (s *AvatarService) DeleteAvatar(user *model.User) error {
	user.Avatar = nil
	return s.userRepo.Update(user)
}

// GetAvatar fetches the stored avatar bytes for any user id; missing user
// and missing avatar are the same not-found to the caller.
func (s *AvatarService) GetAvatar(userID uint) ([]byte, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil || len(user.Avatar) == 0 {
		return nil, ErrNotFound
	}
	return user.Avatar, nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if img, jerr := jpeg.Decode(bytes.NewReader(data)); jerr == nil {
		return img, nil
	}
	if img, perr := png.Decode(bytes.NewReader(data)); perr == nil {
		return img, nil
	}
	return nil, err
}
